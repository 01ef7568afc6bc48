package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/ctxbudget/internal/budget"
)

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <layer>...",
	Short: "Deactivate active layers",
	Long: `Deactivate the given layers and release their weight. Requests are
rejected when another active layer still depends on a target, unless
--cascade also deactivates the dependents.

Examples:
  ctxbudget deactivate git-advanced
  ctxbudget deactivate git --cascade`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeactivate,
}

func init() {
	rootCmd.AddCommand(deactivateCmd)

	deactivateCmd.Flags().Bool("cascade", false, "Also deactivate dependent layers")
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := buildScheduler()
	if err != nil {
		return err
	}
	defer cleanup()

	cascade, _ := cmd.Flags().GetBool("cascade")
	res, err := sched.DeactivateLayers(budget.DeactivationRequest{
		LayerIDs:          args,
		CascadeDependents: cascade,
	})
	if err != nil {
		return err
	}

	printResult(res, sched.Options().MaxWeight)
	if !res.Success {
		return fmt.Errorf("deactivation rejected: %s", res.Reason)
	}
	return nil
}
