// Command pcolab plans projects as task hierarchies on a zoomable timeline
// and serves them to collaborating viewers.
package main

import (
	"fmt"
	"os"

	app "github.com/valter-silva-au/projectcolab/internal"
	"github.com/valter-silva-au/projectcolab/internal/cli"
)

// Injected with -ldflags "-X main.version=..." at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes: 1 for a failed command, 2 when the workspace cannot be opened.
const (
	exitCommand = 1
	exitSetup   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersionInfo(version, commit, date)

	a, err := app.NewApp(app.ResolveBasePath(), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pcolab: opening workspace: %v\n", err)
		return exitSetup
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("closing event log")
		}
	}()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pcolab: %v\n", err)
		return exitCommand
	}
	return 0
}
