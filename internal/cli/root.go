package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// todayFlag pins "today" for layout and alerts, as YYYY-MM-DD.
var todayFlag string

// now is the clock every command reads. Tests and --today replace it.
var now = func() time.Time { return time.Now().UTC() }

var rootCmd = &cobra.Command{
	Use:   "pcolab",
	Short: "projectcolab - collaborative project scheduling",
	Long: `projectcolab (pcolab) plans projects as task hierarchies and lays them out
on a zoomable timeline.

Projects, tasks, dependencies and assignments are managed from the command
line; legacy plans can be imported; "serve" exposes the HTTP API and pushes
realtime updates to every viewer of a project.

--today fixes the reference date used by timeline windows and alerts, which
helps when reviewing a plan as of a past or future day.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyToday(todayFlag)
	},
}

// applyToday installs a fixed clock for s, or the wall clock when s is empty.
func applyToday(s string) error {
	if s == "" {
		now = func() time.Time { return time.Now().UTC() }
		return nil
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("parsing --today %q: want YYYY-MM-DD", s)
	}
	// Noon keeps the pinned day stable under any later timezone shift.
	pinned := day.Add(12 * time.Hour)
	now = func() time.Time { return pinned }
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pcolab %s (commit %s, built %s)\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&todayFlag, "today", "", "Reference date for timelines and alerts (YYYY-MM-DD)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
