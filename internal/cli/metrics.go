package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/internal/observability"
)

var (
	metricsJSON    bool
	metricsSince   string
	metricsProject string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display schedule activity metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics cover project and task counts, status transitions, and the
dependencies and assignments added in the window. --since takes a look-back
such as 7d, 2w or 24h, or a YYYY-MM-DD date; --project narrows the counts to
one project.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		sinceTime, err := observability.ParseWindow(metricsSince, now())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		if metricsProject != "" && TaskMgr != nil {
			if _, err := TaskMgr.GetProject(metricsProject); err != nil {
				return fmt.Errorf("loading project: %w", err)
			}
		}

		metrics, err := MetricsCalc.Calculate(observability.MetricsQuery{Since: sinceTime, ProjectID: metricsProject})
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		scope := "all projects"
		if metricsProject != "" {
			scope = "project " + metricsProject
		}
		fmt.Fprintf(out, "Metrics for %s since %s\n\n", scope, sinceTime.Format(time.DateOnly))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Projects created:", metrics.ProjectsCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Active projects:", metrics.ActiveProjects)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks created:", metrics.TasksCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks updated:", metrics.TasksUpdated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", metrics.TasksCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks deleted:", metrics.TasksDeleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Dependencies added:", metrics.DependenciesAdded)
		fmt.Fprintf(out, "  %-24s %d\n", "Assignments added:", metrics.AssignmentsAdded)

		if len(metrics.StatusTransitions) > 0 {
			fmt.Fprintln(out, "\n  Status transitions:")
			keys := make([]string, 0, len(metrics.StatusTransitions))
			for k := range metrics.StatusTransitions {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "    %-28s %d\n", k+":", metrics.StatusTransitions[k])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Window start: 7d, 2w, 24h or YYYY-MM-DD")
	metricsCmd.Flags().StringVar(&metricsProject, "project", "", "Only count events of this project")
	rootCmd.AddCommand(metricsCmd)
}
