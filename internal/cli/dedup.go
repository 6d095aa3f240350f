package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opspulse/opspulse/internal/alert"
)

var (
	dedupStatusJSON bool
	dedupStatusTop  int

	dedupCheckJSON   bool
	dedupCheckLine   string
	dedupCheckNotify bool

	dedupPruneJSON bool

	dedupResetJSON   bool
	dedupResetBackup bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Manage alert deduplication state",
	Long: `Inspect and maintain the alert deduplication state file that suppresses
repeated notifications for the same alert within the cooldown window.`,
}

var dedupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the deduplication state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if DedupSvc == nil {
			return fmt.Errorf("dedup service not initialized")
		}

		summary, err := DedupSvc.Summarize(dedupStatusTop, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("summarizing dedup state: %w", err)
		}

		if dedupStatusJSON {
			return printJSON(summary)
		}

		fmt.Printf("Alert dedup state: %s\n", summary.StatePath)
		fmt.Printf("Entry count: %d\n", summary.EntryCount)
		fmt.Printf("Oldest timestamp: %s\n", orDash(summary.OldestTime))
		fmt.Printf("Newest timestamp: %s\n", orDash(summary.NewestTime))
		if len(summary.TopSignatures) > 0 {
			fmt.Println("Top signatures:")
			for _, row := range summary.TopSignatures {
				fmt.Printf("- %s @ %s\n", row.Preview, orDash(row.Timestamp))
			}
		} else {
			fmt.Println("Top signatures: (none)")
		}
		return nil
	},
}

var dedupCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Decide whether an alert line may be emitted",
	Long: `Apply the cooldown rule to one alert line. A positive decision is
recorded in state, so a second identical call within the cooldown is
suppressed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if DedupSvc == nil {
			return fmt.Errorf("dedup service not initialized")
		}
		if dedupCheckLine == "" {
			return fmt.Errorf("--line is required")
		}

		decision, err := DedupSvc.ShouldEmit(dedupCheckLine, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("evaluating dedup decision: %w", err)
		}

		if dedupCheckNotify && decision.Send {
			if Notifier == nil {
				return fmt.Errorf("notifier not configured (set notify_webhook_url or ALERT_WEBHOOK_URL)")
			}
			if err := Notifier.Notify(alert.ParseLines([]string{dedupCheckLine})); err != nil {
				return fmt.Errorf("sending notification: %w", err)
			}
		}

		if dedupCheckJSON {
			return printJSON(decision)
		}

		fmt.Printf("Send: %t\n", decision.Send)
		fmt.Printf("Signature: %s\n", decision.Signature)
		if decision.LastSent != "" {
			fmt.Printf("Last sent: %s\n", decision.LastSent)
		}
		if decision.SentAt != "" {
			fmt.Printf("Sent at: %s\n", decision.SentAt)
		}
		return nil
	},
}

var dedupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove entries older than the TTL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if DedupSvc == nil {
			return fmt.Errorf("dedup service not initialized")
		}

		result, err := DedupSvc.Prune(time.Now().UTC())
		if err != nil {
			return fmt.Errorf("pruning dedup state: %w", err)
		}

		if dedupPruneJSON {
			return printJSON(result)
		}

		fmt.Println("Alert dedup prune completed.")
		fmt.Printf("State file: %s\n", result.StatePath)
		fmt.Printf("TTL sec: %g\n", result.TTLSec)
		fmt.Printf("Entries before: %d\n", result.EntryCountBefore)
		fmt.Printf("Entries after: %d\n", result.EntryCountAfter)
		fmt.Printf("Removed: %d\n", result.RemovedCount)
		return nil
	},
}

var dedupResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Empty the deduplication state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if DedupSvc == nil {
			return fmt.Errorf("dedup service not initialized")
		}

		result, err := DedupSvc.Reset(dedupResetBackup, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("resetting dedup state: %w", err)
		}

		if dedupResetJSON {
			return printJSON(result)
		}

		fmt.Println("Alert dedup state reset completed.")
		fmt.Printf("State file: %s\n", result.StatePath)
		fmt.Printf("Entries before: %d\n", result.EntryCountBefore)
		fmt.Printf("Entries after: %d\n", result.EntryCountAfter)
		if result.BackupPath != "" {
			fmt.Printf("Backup: %s\n", result.BackupPath)
		} else if !result.Existed {
			fmt.Println("State file did not exist; initialized empty state.")
		}
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("formatting output as JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	dedupStatusCmd.Flags().BoolVar(&dedupStatusJSON, "json", false, "Output the summary as JSON")
	dedupStatusCmd.Flags().IntVar(&dedupStatusTop, "top", 5, "Number of most recent signatures to show")

	dedupCheckCmd.Flags().BoolVar(&dedupCheckJSON, "json", false, "Output the decision as JSON")
	dedupCheckCmd.Flags().StringVar(&dedupCheckLine, "line", "", "Alert line to check (required)")
	dedupCheckCmd.Flags().BoolVar(&dedupCheckNotify, "notify", false, "Send the alert to the configured webhook when it passes the cooldown")

	dedupPruneCmd.Flags().BoolVar(&dedupPruneJSON, "json", false, "Output the result as JSON")

	dedupResetCmd.Flags().BoolVar(&dedupResetJSON, "json", false, "Output the result as JSON")
	dedupResetCmd.Flags().BoolVar(&dedupResetBackup, "backup", false, "Keep a timestamped backup of the state file")

	dedupCmd.AddCommand(dedupStatusCmd, dedupCheckCmd, dedupPruneCmd, dedupResetCmd)
	rootCmd.AddCommand(dedupCmd)
}
