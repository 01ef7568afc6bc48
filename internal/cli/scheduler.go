package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/andywolf/ctxbudget/internal/budget"
	"github.com/andywolf/ctxbudget/internal/config"
	"github.com/andywolf/ctxbudget/internal/events"
	"github.com/andywolf/ctxbudget/internal/manifest"
)

// buildScheduler assembles a scheduler from config and the manifest, wiring
// the JSONL event sink when enabled. The returned cleanup flushes and closes
// the sink and must be called before exit.
func buildScheduler() (*budget.Scheduler, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	opts, err := cfg.SchedulerOptions()
	if err != nil {
		return nil, nil, err
	}

	var schedOpts []budget.Option
	if viper.GetBool("verbose") {
		schedOpts = append(schedOpts, budget.WithLogger(log.New(os.Stderr, "ctxbudget: ", log.LstdFlags)))
	}

	sched, err := budget.New(opts, schedOpts...)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	if cfg.Events.Enabled {
		sink, err := events.NewFileSink(cfg.Events.Dir)
		if err != nil {
			return nil, nil, err
		}
		sched.AddObserver(events.NewSinkObserver(sink, sched.ID(), func(err error) {
			fmt.Fprintln(os.Stderr, "event sink:", err)
		}))
		cleanup = func() { _ = sink.Close() }
	}

	if cfg.Manifest.Path != "" {
		m, err := manifest.Load(cfg.Manifest.Path)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if _, err := m.Apply(sched, nil); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to apply manifest: %w", err)
		}
	}

	return sched, cleanup, nil
}
