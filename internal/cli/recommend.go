package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <context text>",
	Short: "Suggest layers for a task description",
	Long: `Score inactive layers against a free-text task description by keyword
overlap and priority, and print the best matches.

Example:
  ctxbudget recommend "fix the failing database migration"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().Int("limit", 5, "Maximum number of suggestions")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := buildScheduler()
	if err != nil {
		return err
	}
	defer cleanup()

	limit, _ := cmd.Flags().GetInt("limit")
	recs := sched.Recommendations(strings.Join(args, " "), limit)
	if len(recs) == 0 {
		fmt.Println("No matching layers.")
		return nil
	}

	for _, r := range recs {
		fmt.Printf("%-24s score %-4d %s\n", r.LayerID, r.Score, r.Reason)
	}
	return nil
}
