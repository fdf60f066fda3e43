package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (list, create, update, delete, dep, assign)",
	Long: `Task management commands.

Tasks form a hierarchy inside one project. Dependencies and assignments are
descriptive links: adding them never moves a task's dates.`,
}

var taskListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's tasks as an indented tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		tasks, err := TaskMgr.ListTasks(args[0])
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}
		for _, r := range core.Flatten(core.BuildForest(tasks)) {
			marker := "-"
			if r.HasChildren {
				marker = "+"
			}
			name := strings.Repeat("  ", r.Depth) + marker + " " + r.Task.Name
			fmt.Fprintf(out, "%-38s %-40s %-12s %3d%%  %s\n", r.Task.ID, name, r.Task.Status, r.Task.Progress, dateSpan(r.Task.StartDate, r.Task.EndDate))
		}
		return nil
	},
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <project-id> <name>",
	Short: "Create a task in a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		draft := models.TaskDraft{Name: args[1]}
		draft.Description, _ = cmd.Flags().GetString("description")
		draft.ParentID, _ = cmd.Flags().GetString("parent")
		status, _ := cmd.Flags().GetString("status")
		draft.Status = models.TaskStatus(status)
		priority, _ := cmd.Flags().GetString("priority")
		draft.Priority = models.Priority(priority)
		draft.Duration = intFlagIfChanged(cmd, "duration")
		draft.Progress = intFlagIfChanged(cmd, "progress")
		draft.Order = intFlagIfChanged(cmd, "order")
		var err error
		if draft.StartDate, err = dateFlag(cmd, "start"); err != nil {
			return err
		}
		if draft.EndDate, err = dateFlag(cmd, "end"); err != nil {
			return err
		}

		task, err := TaskMgr.CreateTask(args[0], draft)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created task %s\n", task.ID)
		fmt.Fprintf(out, "  Name:     %s\n", task.Name)
		if task.ParentID != "" {
			fmt.Fprintf(out, "  Parent:   %s\n", task.ParentID)
		}
		fmt.Fprintf(out, "  Dates:    %s\n", dateSpan(task.StartDate, task.EndDate))
		fmt.Fprintf(out, "  Status:   %s\n", task.Status)
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task's fields or move it in the hierarchy",
	Long: `Update a task. Only the flags you pass are changed.

Use --parent to move the task under another task of the same project and
--root to make it a top-level task. Moves that would put a task under its
own descendant are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		var patch models.TaskPatch
		patch.Name = stringFlagIfChanged(cmd, "name")
		patch.Description = stringFlagIfChanged(cmd, "description")
		if s := stringFlagIfChanged(cmd, "status"); s != nil {
			status := models.TaskStatus(*s)
			patch.Status = &status
		}
		if s := stringFlagIfChanged(cmd, "priority"); s != nil {
			priority := models.Priority(*s)
			patch.Priority = &priority
		}
		patch.Duration = intFlagIfChanged(cmd, "duration")
		patch.Progress = intFlagIfChanged(cmd, "progress")
		patch.Order = intFlagIfChanged(cmd, "order")
		patch.ParentID = stringFlagIfChanged(cmd, "parent")
		patch.ClearParent, _ = cmd.Flags().GetBool("root")
		patch.ClearStartDate, _ = cmd.Flags().GetBool("clear-start")
		patch.ClearEndDate, _ = cmd.Flags().GetBool("clear-end")
		var err error
		if patch.StartDate, err = dateFlag(cmd, "start"); err != nil {
			return err
		}
		if patch.EndDate, err = dateFlag(cmd, "end"); err != nil {
			return err
		}

		task, err := TaskMgr.UpdateTask(args[0], patch)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s (%s, %s, %d%%)\n", task.ID, task.Name, task.Status, task.Progress)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Long: `Delete a task. Its children are kept and show up as top-level tasks
until they are moved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		if err := TaskMgr.DeleteTask(args[0]); err != nil {
			return fmt.Errorf("deleting task: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
		return nil
	},
}

var taskDepCmd = &cobra.Command{
	Use:   "dep <task-id> <depends-on-id>",
	Short: "Record that a task depends on another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		depType, _ := cmd.Flags().GetString("type")
		dep, err := TaskMgr.AddDependency(args[0], args[1], models.DependencyType(depType))
		if err != nil {
			return fmt.Errorf("adding dependency: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s depends on %s (%s)\n", dep.TaskID, dep.DependsOnID, dep.Type)
		return nil
	},
}

var taskDepsCmd = &cobra.Command{
	Use:   "deps <project-id>",
	Short: "List a project's dependencies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		deps, err := TaskMgr.ListDependencies(args[0])
		if err != nil {
			return fmt.Errorf("listing dependencies: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(deps) == 0 {
			fmt.Fprintln(out, "No dependencies.")
			return nil
		}
		for _, d := range deps {
			fmt.Fprintf(out, "%s -> %s (%s)\n", d.TaskID, d.DependsOnID, d.Type)
		}
		return nil
	},
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <user-id>",
	Short: "Assign a user to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}
		role, _ := cmd.Flags().GetString("role")
		a, err := TaskMgr.AssignUser(args[0], args[1], models.AssignmentRole(role))
		if err != nil {
			return fmt.Errorf("assigning user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s as %s\n", a.UserID, a.TaskID, a.Role)
		return nil
	},
}

func intFlagIfChanged(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

// completeTaskStatuses returns valid status values for shell completion.
func completeTaskStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"todo\tNot started",
		"in_progress\tBeing worked on",
		"completed\tFinished",
		"blocked\tWaiting on something",
	}, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	for _, c := range []*cobra.Command{taskCreateCmd, taskUpdateCmd} {
		c.Flags().String("description", "", "Task description")
		c.Flags().String("parent", "", "Parent task id")
		c.Flags().String("start", "", "Start date (YYYY-MM-DD)")
		c.Flags().String("end", "", "End date (YYYY-MM-DD)")
		c.Flags().Int("duration", 0, "Duration in days when no end date is given")
		c.Flags().Int("progress", 0, "Percent complete (0-100)")
		c.Flags().Int("order", 0, "Position among siblings")
		c.Flags().String("status", "", "Status (todo, in_progress, completed, blocked)")
		c.Flags().String("priority", "", "Priority (low, medium, high, urgent)")
		_ = c.RegisterFlagCompletionFunc("status", completeTaskStatuses)
	}
	taskUpdateCmd.Flags().String("name", "", "New task name")
	taskUpdateCmd.Flags().Bool("root", false, "Make the task a top-level task")
	taskUpdateCmd.Flags().Bool("clear-start", false, "Remove the start date")
	taskUpdateCmd.Flags().Bool("clear-end", false, "Remove the end date")
	taskUpdateCmd.MarkFlagsMutuallyExclusive("parent", "root")

	taskDepCmd.Flags().String("type", string(models.FinishToStart), "Dependency type (finish_to_start, start_to_start, finish_to_finish, start_to_finish)")
	taskAssignCmd.Flags().String("role", string(models.RoleAssignee), "Role (assignee, reviewer, watcher)")

	taskCmd.AddCommand(taskListCmd, taskCreateCmd, taskUpdateCmd, taskDeleteCmd, taskDepCmd, taskDepsCmd, taskAssignCmd)
	rootCmd.AddCommand(taskCmd)
}
