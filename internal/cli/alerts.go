package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/internal/observability"
)

var (
	alertsMinSeverity string
	alertsJSON        bool
)

var severityStyles = map[observability.AlertSeverity]lipgloss.Style{
	observability.SeverityHigh:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	observability.SeverityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	observability.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
}

var alertsCmd = &cobra.Command{
	Use:   "alerts <project-id>",
	Short: "Show schedule health alerts for a project",
	Long: `Check a project's tasks against the event log and list what needs
attention: overdue tasks, tasks blocked too long, in-progress tasks with no
recent activity, and too many open tasks without a start date.

Thresholds come from the alerts section of .colabconfig. --min-severity hides
alerts below the given level.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		floor, err := observability.ParseSeverity(alertsMinSeverity)
		if err != nil {
			return fmt.Errorf("parsing --min-severity: %w", err)
		}

		tasks, err := TaskMgr.ListTasks(args[0])
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		alerts, err := AlertEngine.Evaluate(tasks, now())
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}
		alerts = observability.AtLeast(alerts, floor)

		out := cmd.OutOrStdout()
		if alertsJSON {
			if alerts == nil {
				alerts = []observability.Alert{}
			}
			data, err := json.MarshalIndent(alerts, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting alerts as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}
		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, a := range alerts {
			tag := severityStyles[a.Severity].Render("[" + strings.ToUpper(string(a.Severity)) + "]")
			fmt.Fprintf(out, "  %s %s\n", tag, a.Message)
			fmt.Fprintf(out, "         %s, triggered at %s\n\n", a.Condition, a.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().StringVar(&alertsMinSeverity, "min-severity", "low", "Lowest severity to show (high, medium, low)")
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "Output alerts as JSON")
	rootCmd.AddCommand(alertsCmd)
}
