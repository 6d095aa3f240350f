package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	opsmcp "github.com/opspulse/opspulse/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the opspulse MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the opspulse MCP server on stdio",
	Long: `Start the opspulse MCP server on stdio transport.

The server exposes pipeline health as MCP tools that AI coding assistants
can call: check_thresholds, get_report, dedup_status, dedup_should_emit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Builder == nil {
			return fmt.Errorf("report builder not initialized")
		}

		srv := opsmcp.NewServer(Builder, DedupSvc, Cfg.ReportDays, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
