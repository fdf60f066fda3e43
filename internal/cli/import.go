package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

var (
	importInto        string
	importProjectName string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a legacy plan from a JSON or YAML file",
	Long: `Import task records exported from another scheduling tool.

The file holds a list of records, or an object with a "tasks" list. Column
names are matched loosely (taskName, task_name and "Task Name" are the same
field). The hierarchy is rebuilt from parent names and orders, falling back
to outline levels.

By default a new project named after the file is created; use --into to add
the tasks to an existing project. Bad records are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Importer == nil {
			return fmt.Errorf("importer not initialized")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading import file: %w", err)
		}
		raw, err := core.DecodeRawRecords(data)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var res *core.ImportResult
		if importInto != "" {
			res, err = Importer.Reconcile(ctx, importInto, raw)
		} else {
			name := importProjectName
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			var p *models.Project
			p, res, err = Importer.ImportProject(ctx, models.Project{Name: name}, raw)
			if p != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.ID, p.Name)
			}
		}
		if res != nil {
			printImportResult(cmd, res)
		}
		if err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}
		return nil
	},
}

func printImportResult(cmd *cobra.Command, res *core.ImportResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d of %d record(s), linked %d to a parent\n", res.Created, res.Attempted, res.Linked)
	if len(res.Failures) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%d problem(s):\n", len(res.Failures))
	for _, f := range res.Failures {
		name := f.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(out, "  #%d %s [%s]: %s\n", f.Index, name, f.Stage, f.Reason)
	}
}

func init() {
	importCmd.Flags().StringVar(&importInto, "into", "", "Existing project id to import into")
	importCmd.Flags().StringVar(&importProjectName, "name", "", "Name of the new project (default: file name)")
	importCmd.MarkFlagsMutuallyExclusive("into", "name")
	rootCmd.AddCommand(importCmd)
}
