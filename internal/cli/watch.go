package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andywolf/ctxbudget/internal/config"
	"github.com/andywolf/ctxbudget/internal/sweep"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the periodic optimization sweep",
	Long: `Keep the scheduler resident and run the configured optimization sweep
until interrupted. Each sweep tick evicts stale units down to the warning
watermark whenever pressure has reached warning or above.

Example:
  ctxbudget watch --schedule "@every 30s"`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("schedule", "", "Sweep cron schedule (overrides config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := buildScheduler()
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	schedule := cfg.Sweep.Schedule
	if flagSchedule, _ := cmd.Flags().GetString("schedule"); flagSchedule != "" {
		schedule = flagSchedule
	}

	logger := log.New(os.Stderr, "ctxbudget: ", log.LstdFlags)
	sweeper, err := sweep.New(sched, schedule, logger)
	if err != nil {
		return err
	}

	sweeper.Start()
	fmt.Printf("Sweeping on %q, press Ctrl-C to stop.\n", schedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sweeper.Stop()
	return nil
}
