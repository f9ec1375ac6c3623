package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/engine"
	"github.com/vajra-sim/vajra/internal/storage"
	"github.com/vajra-sim/vajra/pkg/core"
)

// defaultMaxTicks is ten simulated minutes at the default tick rate.
const defaultMaxTicks = 60 * 60 * 10

type runOptions struct {
	scenarioID string
	friendly   int
	enemy      int
	aiLevel    string
	maxTicks   int
}

func (o *runOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.scenarioID, "scenario", "", "scenario id to run")
	fs.IntVar(&o.friendly, "friendly", -1, "friendly count for a custom battle (needs --enemy)")
	fs.IntVar(&o.enemy, "enemy", -1, "enemy count for a custom battle (needs --friendly)")
	fs.StringVar(&o.aiLevel, "ai-level", "", "AI tier overriding ai.level")
	fs.IntVar(&o.maxTicks, "max-ticks", defaultMaxTicks, "stop an unfinished run after this many ticks")
}

func (o runOptions) custom() bool {
	return o.friendly >= 0 && o.enemy >= 0
}

func (o runOptions) validate() error {
	if (o.friendly >= 0) != (o.enemy >= 0) {
		return errors.New("--friendly and --enemy must be given together")
	}
	if !o.custom() && o.scenarioID == "" {
		return errors.New("--scenario or --friendly/--enemy is required")
	}
	if o.maxTicks <= 0 {
		return fmt.Errorf("--max-ticks must be positive, got %d", o.maxTicks)
	}
	return nil
}

type resultsOptions struct {
	limit int
}

func (o *resultsOptions) bind(fs *pflag.FlagSet) {
	fs.IntVar(&o.limit, "limit", 20, "number of records to list, 0 for all")
}

// runHeadless drives one engine to completion without a transport and
// stores its result like a served session would.
func runHeadless(ctx context.Context, opts runOptions, w io.Writer) error {
	if err := opts.validate(); err != nil {
		return err
	}

	sim := config.GetSimulationConfig()
	scenarios, err := newScenarios(sim)
	if err != nil {
		return err
	}

	var sc *core.Scenario
	if opts.custom() {
		sc = scenarios.Custom(opts.friendly, opts.enemy)
	} else if sc, err = scenarios.Get(opts.scenarioID); err != nil {
		return err
	}

	store, err := openResults(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	e := engine.New(sim, engine.WithLogger(Logger), engine.WithRecorder(store.recorder))
	if opts.aiLevel != "" {
		if err := e.SetAILevel(opts.aiLevel); err != nil {
			return err
		}
	}
	if err := e.Start(sc); err != nil {
		return err
	}

	start := time.Now()
	var snap core.Snapshot
	ticks := 0
	for ticks < opts.maxTicks && e.Status() != core.StatusFinished {
		if ctx.Err() != nil {
			Logger.Warn("Run interrupted", "scenario", sc.ID, "ticks", ticks)
			break
		}
		snap = e.Update()
		ticks++
	}

	res := e.Result()
	finished := e.Status() == core.StatusFinished
	if !finished {
		// Reset stores the partial run.
		e.Reset()
	}
	Logger.Info("Headless run complete", "scenario", sc.ID, "ticks", ticks, "finished", finished, "duration", time.Since(start))

	printRun(w, sc, res, snap, finished)
	return nil
}

func printRun(w io.Writer, sc *core.Scenario, res core.ResultRecord, snap core.Snapshot, finished bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Scenario\t%s (%s)\n", sc.Name, sc.ID)
	fmt.Fprintf(tw, "AI level\t%s\n", res.AILevel)
	fmt.Fprintf(tw, "Finished\t%t\n", finished)
	fmt.Fprintf(tw, "Sim time\t%.2fs\n", res.SimTimeSec)
	fmt.Fprintf(tw, "Neutralizations\t%d\n", res.Neutralizations)
	fmt.Fprintf(tw, "Friendly losses\t%d\n", res.FriendlyLosses)
	fmt.Fprintf(tw, "Assets saved\t%d\n", res.AssetsSaved)
	fmt.Fprintf(tw, "Avg intercept time\t%.2fs\n", res.AvgInterceptTime)
	fmt.Fprintf(tw, "Unattended hostiles\t%.1f%%\n", snap.Metrics.PercentUnattendedHostiles)
	_ = tw.Flush()
}

// listResults prints stored records, newest first.
func listResults(ctx context.Context, opts resultsOptions, w io.Writer) error {
	storageCfg := config.GetStorageConfig()
	// Read the sqlite file directly rather than an empty in-memory copy.
	storageCfg.SQLite.DumpInterval = 0

	backend, err := createStorageBackend(storageCfg, nil)
	if err != nil {
		return err
	}
	reader, ok := backend.(storage.Reader)
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotReadable, storageCfg.Type)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Warn("Failed to close storage", "error", err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	records, err := reader.ListResults(opts.limit)
	if err != nil {
		return err
	}
	printResults(w, records)
	return nil
}

func printResults(w io.Writer, records []core.ResultRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tSCENARIO\tSIM TIME\tNEUTRALIZED\tLOST\tSAVED\tAVG INTERCEPT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\t%d\t%d\t%.2f\n",
			r.Timestamp.Format(time.RFC3339), r.ScenarioID, r.SimTimeSec,
			r.Neutralizations, r.FriendlyLosses, r.AssetsSaved, r.AvgInterceptTime)
	}
	_ = tw.Flush()
}
