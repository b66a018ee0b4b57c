// Package file provides file-based configuration for chatstate.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.chatstate/config.toml
//   - LoadEnv: .env files merged into the process environment
//   - Watcher: reloads a ConfigStore when its file changes on disk
package file
