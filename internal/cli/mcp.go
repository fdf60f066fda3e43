package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	colabmcp "github.com/valter-silva-au/projectcolab/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose schedules to AI assistants over MCP",
	Long:  "Commands for the projectcolab MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Run the MCP server on stdio until the client disconnects or the process
is interrupted. Stdout carries the protocol, so logs go to stderr.

Run "pcolab mcp tools" to see what the server exposes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskMgr == nil {
			return fmt.Errorf("task manager not initialized")
		}

		srv := colabmcp.NewServer(TaskMgr, MetricsCalc, AlertEngine, appVersion)
		srv.SetClock(now)

		ctx, stop := signal.NotifyContext(mcpContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		Logger.Info().
			Bool("metrics", MetricsCalc != nil).
			Bool("alerts", AlertEngine != nil).
			Msg("mcp server listening on stdio")
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		Logger.Info().Msg("mcp server stopped")
		return nil
	},
}

var mcpToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the MCP server exposes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range colabmcp.Tools() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %s\n", t.Name, t.Description)
		}
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd, mcpToolsCmd)
	rootCmd.AddCommand(mcpCmd)
}

// mcpContext is the base context for commands run without one.
func mcpContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
