package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show budget statistics",
	Long: `Show the current budget consumption, pressure level, heaviest units
and optimization potential for the configured manifest.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := buildScheduler()
	if err != nil {
		return err
	}
	defer cleanup()

	stats := sched.Statistics()

	printSection("Budget")
	fmt.Printf("%-22s %d/%d\n", "Weight:", stats.CurrentWeight, stats.MaxWeight)
	fmt.Printf("%-22s %s\n", "Pressure:", pressureString(stats.Pressure))
	fmt.Printf("%-22s %d\n", "Tracked units:", stats.ItemCount)
	fmt.Printf("%-22s %.1f\n", "Mean weight:", stats.MeanWeight)
	fmt.Printf("%-22s %d\n", "Reclaimable weight:", stats.OptimizationPotential)

	if len(stats.ActiveLayers) > 0 {
		printSection("Active layers")
		fmt.Println(strings.Join(stats.ActiveLayers, ", "))
	}

	if len(stats.Heaviest) > 0 {
		printSection("Heaviest units")
		for _, it := range stats.Heaviest {
			fmt.Printf("%-30s %d\n", it.ID, it.Weight)
		}
	}

	return nil
}
