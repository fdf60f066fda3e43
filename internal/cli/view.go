package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// viewModel is an interactive timeline of one project. Expanded rows and
// the pinned zoom survive reloads; only the task snapshot is replaced.
type viewModel struct {
	projectID string
	cfg       models.TimelineConfig
	zoom      *core.ZoomController
	expanded  core.IDSet
	collapsed core.IDSet // parents the user closed; reloads keep them closed
	now       func() time.Time
	load      func(projectID string) ([]models.Task, error)

	tasks    []models.Task
	schedule core.Schedule
	cursor   int
	width    int
	height   int

	loading bool
	err     error
}

// tasksLoadedMsg carries a fresh snapshot back to the model.
type tasksLoadedMsg struct {
	tasks []models.Task
	err   error
}

func newViewModel(projectID string, cfg models.TimelineConfig, load func(string) ([]models.Task, error)) viewModel {
	return viewModel{
		projectID: projectID,
		cfg:       cfg,
		zoom:      core.NewZoomController(models.ResolutionDays, cfg),
		expanded:  core.NewIDSet(),
		collapsed: core.NewIDSet(),
		now:       now,
		load:      load,
		loading:   true,
	}
}

func (m viewModel) Init() tea.Cmd {
	return m.loadTasks
}

func (m viewModel) loadTasks() tea.Msg {
	tasks, err := m.load(m.projectID)
	return tasksLoadedMsg{tasks: tasks, err: err}
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.schedule.Rows)-1 {
				m.cursor++
			}
		case "enter", " ":
			if m.cursor < len(m.schedule.Rows) {
				row := m.schedule.Rows[m.cursor]
				if row.HasChildren {
					if m.expanded.Toggle(row.Task.ID) {
						m.collapsed.Remove(row.Task.ID)
					} else {
						m.collapsed.Add(row.Task.ID)
					}
				}
			}
		case "+", "=":
			m.zoom.Step(1)
		case "-":
			m.zoom.Step(-1)
		case "a":
			rng := core.DeriveRange(m.tasks, m.now(), m.cfg)
			m.zoom.Auto(rng, m.width*terminalCellPx)
		case "r":
			m.loading = true
			return m, m.loadTasks
		default:
			return m, nil
		}
		m.relayout()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.tasks = msg.tasks
		// New parents open expanded; ones the user closed stay closed.
		for id := range core.DefaultExpanded(core.Flatten(core.BuildForest(m.tasks))) {
			if !m.collapsed.Has(id) {
				m.expanded.Add(id)
			}
		}
		m.relayout()
		return m, nil
	}

	return m, nil
}

// relayout recomputes the schedule from the current snapshot and keeps the
// cursor on a visible row.
func (m *viewModel) relayout() {
	m.schedule = core.LayoutSchedule(m.tasks, m.expanded, m.zoom.Resolution(), m.now(), m.cfg)
	if m.cursor >= len(m.schedule.Rows) {
		m.cursor = len(m.schedule.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m viewModel) View() string {
	title := titleStyle.Render(fmt.Sprintf(" %s ", m.projectID))
	help := helpStyle.Render("↑/↓: move | enter: expand/collapse | +/-: zoom | a: auto zoom | r: reload | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading tasks...\n\n%s", title, help)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  %s\n\n%s", title, errStyle.Render("Error: "+m.err.Error()), help)
	}

	zoom := string(m.zoom.Resolution())
	if m.zoom.IsAuto() {
		zoom += " (auto)"
	}
	body := renderTimeline(m.schedule, defaultCellSize, m.cursor)
	if m.width > 0 {
		lines := strings.Split(body, "\n")
		for i, l := range lines {
			lines[i] = lipgloss.NewStyle().MaxWidth(m.width).Render(l)
		}
		body = strings.Join(lines, "\n")
	}
	return fmt.Sprintf("%s  %s\n\n%s\n%s", title, helpStyle.Render(zoom), body, help)
}

var viewCmd = &cobra.Command{
	Use:   "view <project-id>",
	Short: "Interactive timeline of a project",
	Long: `Launch an interactive terminal timeline of a project.

Move with the arrow keys, expand or collapse a summary row with enter,
change the zoom with + and -, auto-fit with a, reload with r, quit with q.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		if _, err := TaskMgr.GetProject(args[0]); err != nil {
			return fmt.Errorf("loading project: %w", err)
		}
		p := tea.NewProgram(newViewModel(args[0], timelineConfig(), TaskMgr.ListTasks), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
