package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// terminalCellPx is how many layout pixels one terminal character stands
// for when auto zoom sizes the timeline to the terminal.
const terminalCellPx = 8

const (
	nameColumnWidth = 32
	defaultCellSize = 4
)

var (
	timelineHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	barDoneStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	barTodoStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	milestoneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	cursorStyle         = lipgloss.NewStyle().Reverse(true)
)

var (
	timelineZoom     string
	timelineWidth    int
	timelineCollapse []string
	timelineCell     int
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <project-id>",
	Short: "Print a project's timeline",
	Long: `Lay out a project and print the visible rows with their bars.

--zoom takes a resolution (days, weeks, months, quarters, semesters, year) or
"auto", which picks the finest resolution whose columns fit in --width
terminal columns. --collapse hides the subtrees of the given task ids.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		tasks, err := TaskMgr.ListTasks(args[0])
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}

		var expanded core.IDSet
		if len(timelineCollapse) > 0 {
			expanded = core.DefaultExpanded(core.Flatten(core.BuildForest(tasks)))
			for _, id := range timelineCollapse {
				expanded.Remove(id)
			}
		}

		sched, err := TaskMgr.Schedule(args[0], core.ScheduleOptions{
			Zoom:        timelineZoom,
			ContainerPx: timelineWidth * terminalCellPx,
			Expanded:    expanded,
			Now:         now(),
		})
		if err != nil {
			return fmt.Errorf("laying out timeline: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), renderTimeline(*sched, timelineCell, -1))
		return nil
	},
}

// renderTimeline draws s as text: a header of column labels and one line per
// visible row. cell is the character width of a column. The row at cursor,
// if any, is highlighted.
func renderTimeline(s core.Schedule, cell, cursor int) string {
	if cell < 1 {
		cell = defaultCellSize
	}
	var b strings.Builder

	header := padRight(fmt.Sprintf("%s  %s", s.Resolution, s.Range.Start.Format(time.DateOnly)), nameColumnWidth)
	for _, c := range s.Columns {
		header += padRight(truncate(c.Label, cell-1), cell)
	}
	b.WriteString(timelineHeaderStyle.Render(strings.TrimRight(header, " ")))
	b.WriteString("\n")

	if len(s.Rows) == 0 {
		b.WriteString("  No tasks.\n")
		return b.String()
	}

	for _, r := range s.Rows {
		marker := "  "
		if r.HasChildren {
			marker = "▸ "
		}
		name := truncate(strings.Repeat("  ", r.Depth)+marker+r.Task.Name, nameColumnWidth-1)
		name = padRight(name, nameColumnWidth)
		if r.Row == cursor {
			name = cursorStyle.Render(name)
		}
		b.WriteString(name)
		b.WriteString(renderBar(r, len(s.Columns), cell))
		b.WriteString("\n")
	}
	return b.String()
}

// renderBar draws one row's geometry across cols columns. The completed share
// of a bar is drawn solid.
func renderBar(r core.ScheduleRow, cols, cell int) string {
	g := r.Geometry
	switch g.Kind {
	case core.GeometryMilestone:
		if g.Column < 0 || g.Column >= cols {
			return ""
		}
		return strings.Repeat(" ", g.Column*cell+cell/2) + milestoneStyle.Render("◆")
	case core.GeometryBar:
		start, end := g.Column, g.Column+g.Span
		if start < 0 {
			start = 0
		}
		if end > cols {
			end = cols
		}
		if end <= start {
			return ""
		}
		width := (end - start) * cell
		done := width * r.Task.Progress / 100
		return strings.Repeat(" ", start*cell) +
			barDoneStyle.Render(strings.Repeat("█", done)) +
			barTodoStyle.Render(strings.Repeat("░", width-done))
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}

func padRight(s string, n int) string {
	w := len([]rune(s))
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

// timelineConfig returns the configured layout constants.
func timelineConfig() models.TimelineConfig {
	if Config != nil {
		return Config.Timeline
	}
	return core.DefaultTimelineConfig()
}

func init() {
	timelineCmd.Flags().StringVar(&timelineZoom, "zoom", string(models.ResolutionDays), "Resolution or auto")
	timelineCmd.Flags().IntVar(&timelineWidth, "width", 160, "Terminal columns available for auto zoom")
	timelineCmd.Flags().StringSliceVar(&timelineCollapse, "collapse", nil, "Task ids whose subtrees are hidden")
	timelineCmd.Flags().IntVar(&timelineCell, "cell", defaultCellSize, "Characters per timeline column")
	rootCmd.AddCommand(timelineCmd)
}
