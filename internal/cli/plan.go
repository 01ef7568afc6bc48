package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andywolf/ctxbudget/internal/budget"
)

var planCmd = &cobra.Command{
	Use:   "plan <layer>...",
	Short: "Activate layers against the budget",
	Long: `Resolve the dependency closure of the given layers and activate them
against the configured budget. The command reports what was activated,
deactivated or evicted, or why the request was rejected.

Examples:
  ctxbudget plan git-advanced
  ctxbudget plan docker k8s --allow-deactivate
  ctxbudget plan heavy-layer --optimize`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Bool("allow-deactivate", false, "Deactivate conflicting active layers")
	planCmd.Flags().Bool("optimize", false, "Evict stale units to make room for this request")
}

func runPlan(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := buildScheduler()
	if err != nil {
		return err
	}
	defer cleanup()

	allowDeactivate, _ := cmd.Flags().GetBool("allow-deactivate")
	allowOptimize, _ := cmd.Flags().GetBool("optimize")

	res, err := sched.ActivateLayers(budget.ActivationRequest{
		LayerIDs:            args,
		AllowAutoDeactivate: allowDeactivate,
		AllowOptimize:       allowOptimize,
	})
	if err != nil {
		return err
	}

	printResult(res, sched.Options().MaxWeight)
	if !res.Success {
		return fmt.Errorf("activation rejected: %s", res.Reason)
	}
	return nil
}

// printResult renders an activation outcome, shared with deactivate.
func printResult(res budget.ActivationResult, maxWeight int) {
	if res.Success {
		if len(res.Activated) > 0 {
			printSuccess(fmt.Sprintf("activated: %s", strings.Join(res.Activated, ", ")))
		}
		if len(res.Deactivated) > 0 {
			printDim(fmt.Sprintf("deactivated: %s", strings.Join(res.Deactivated, ", ")))
		}
		if len(res.Evicted) > 0 {
			printDim(fmt.Sprintf("evicted: %s", strings.Join(res.Evicted, ", ")))
		}
		for _, sk := range res.Skipped {
			printDim(fmt.Sprintf("skipped %s (%s)", sk.ID, sk.Reason))
		}
		fmt.Printf("Weight: %d/%d\n", res.NewWeight, maxWeight)
	} else {
		printError(fmt.Sprintf("rejected: %s", res.Reason))
		if len(res.Missing) > 0 {
			printDim(fmt.Sprintf("missing definitions: %s", strings.Join(res.Missing, ", ")))
		}
		for _, c := range res.Conflicts {
			printDim(fmt.Sprintf("%s conflicts with active %s", c.RequestedID, c.ActiveID))
		}
		if res.RequiredReduction > 0 {
			printDim(fmt.Sprintf("needs %d more weight freed", res.RequiredReduction))
		}
	}
	for _, w := range res.Warnings {
		printWarning(w)
	}
}
