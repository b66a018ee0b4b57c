// Package migrations embeds SQL migration files for the Postgres store.
package migrations

import "embed"

// FS contains all .up.sql files, applied in name order (001, 002, ...).
//
//go:embed *.sql
var FS embed.FS
