// Command chatstate runs the conversation state engine.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/chatstate/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chatstate/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := file.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
