package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent committed operations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 0, "Maximum entries to show (0 = all retained)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := buildScheduler()
	if err != nil {
		return err
	}
	defer cleanup()

	limit, _ := cmd.Flags().GetInt("limit")
	entries := sched.History(limit)
	if len(entries) == 0 {
		fmt.Println("No operations recorded.")
		return nil
	}

	for _, e := range entries {
		var parts []string
		if len(e.Activated) > 0 {
			parts = append(parts, "activated "+strings.Join(e.Activated, ","))
		}
		if len(e.Deactivated) > 0 {
			parts = append(parts, "deactivated "+strings.Join(e.Deactivated, ","))
		}
		if len(e.Removed) > 0 {
			parts = append(parts, "evicted "+strings.Join(e.Removed, ","))
		}
		fmt.Printf("%s  %-10s %s (weight %d)\n",
			e.Timestamp.Format(time.RFC3339), e.Operation, strings.Join(parts, "; "), e.NewWeight)
	}
	return nil
}
