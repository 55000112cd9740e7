// Command gitws resolves, materializes, and manages multi-repository Git
// workspaces declared by a git-ws.toml manifest.
package main

import (
	"os"

	"github.com/basalt-tools/gitws/internal/cliapp"
	"github.com/basalt-tools/gitws/internal/uilog"
)

func main() {
	if err := cliapp.New().Execute(); err != nil {
		uilog.New(os.Stderr).Error(err)
		os.Exit(1)
	}
}
