package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects (list, create, show, update)",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		projects, err := TaskMgr.ListProjects()
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects found.")
			return nil
		}
		for _, p := range projects {
			fmt.Fprintf(out, "%-38s %-30s %s\n", p.ID, p.Name, dateSpan(p.StartDate, p.EndDate))
		}
		return nil
	},
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		p := models.Project{Name: args[0]}
		p.Description, _ = cmd.Flags().GetString("description")
		p.Color, _ = cmd.Flags().GetString("color")
		var err error
		if p.StartDate, err = dateFlag(cmd, "start"); err != nil {
			return err
		}
		if p.EndDate, err = dateFlag(cmd, "end"); err != nil {
			return err
		}

		created, err := TaskMgr.CreateProject(p)
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", created.ID, created.Name)
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project and a summary of its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		p, err := TaskMgr.GetProject(args[0])
		if err != nil {
			return fmt.Errorf("loading project: %w", err)
		}
		tasks, err := TaskMgr.ListTasks(p.ID)
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		counts := make(map[models.TaskStatus]int)
		for _, t := range tasks {
			counts[t.Status]++
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Project %s\n", p.ID)
		fmt.Fprintf(out, "  Name:    %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "  About:   %s\n", p.Description)
		}
		fmt.Fprintf(out, "  Dates:   %s\n", dateSpan(p.StartDate, p.EndDate))
		fmt.Fprintf(out, "  Tasks:   %d\n", len(tasks))
		for _, s := range []models.TaskStatus{models.StatusTodo, models.StatusInProgress, models.StatusBlocked, models.StatusCompleted} {
			if counts[s] > 0 {
				fmt.Fprintf(out, "    %-12s %d\n", s, counts[s])
			}
		}
		return nil
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Update a project's name, description, color or dates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		var patch models.ProjectPatch
		patch.Name = stringFlagIfChanged(cmd, "name")
		patch.Description = stringFlagIfChanged(cmd, "description")
		patch.Color = stringFlagIfChanged(cmd, "color")
		var err error
		if patch.StartDate, err = dateFlag(cmd, "start"); err != nil {
			return err
		}
		if patch.EndDate, err = dateFlag(cmd, "end"); err != nil {
			return err
		}

		updated, err := TaskMgr.UpdateProject(args[0], patch)
		if err != nil {
			return fmt.Errorf("updating project: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s (%s)\n", updated.ID, updated.Name)
		return nil
	},
}

// dateFlag reads a YYYY-MM-DD flag. An unset or empty flag yields nil.
func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %q is not a date (use YYYY-MM-DD)", name, s)
	}
	return &d, nil
}

func stringFlagIfChanged(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	s, _ := cmd.Flags().GetString(name)
	return &s
}

func dateSpan(start, end *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "?"
		}
		return t.Format(time.DateOnly)
	}
	if start == nil && end == nil {
		return "unscheduled"
	}
	return format(start) + " .. " + format(end)
}

func init() {
	for _, c := range []*cobra.Command{projectCreateCmd, projectUpdateCmd} {
		c.Flags().String("description", "", "Project description")
		c.Flags().String("color", "", "Display color (e.g. #3366ff)")
		c.Flags().String("start", "", "Planned start date (YYYY-MM-DD)")
		c.Flags().String("end", "", "Planned end date (YYYY-MM-DD)")
	}
	projectUpdateCmd.Flags().String("name", "", "New project name")

	projectCmd.AddCommand(projectListCmd, projectCreateCmd, projectShowCmd, projectUpdateCmd)
	rootCmd.AddCommand(projectCmd)
}
