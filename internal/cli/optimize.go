package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Evict stale units down to a target weight",
	Long: `Run one eviction pass with the configured strategy. Without a target
the pass drains consumption to the warning watermark.

Examples:
  ctxbudget optimize
  ctxbudget optimize --target 6000`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().Int("target", 0, "Target total weight (0 = warning watermark)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := buildScheduler()
	if err != nil {
		return err
	}
	defer cleanup()

	target, _ := cmd.Flags().GetInt("target")
	res := sched.Optimize(target)

	if len(res.Removed) == 0 {
		fmt.Println("Nothing to evict.")
	} else {
		printSuccess(fmt.Sprintf("evicted %s (%s strategy), freed %d",
			strings.Join(res.Removed, ", "), res.Strategy, res.FreedWeight))
	}
	fmt.Printf("Weight: %d/%d\n", res.NewWeight, sched.Options().MaxWeight)
	for _, w := range res.Warnings {
		printWarning(w)
	}
	return nil
}
