package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/trainingpulse/trainingpulse/agent/internal/compute"
	"github.com/trainingpulse/trainingpulse/agent/internal/config"
	"github.com/trainingpulse/trainingpulse/agent/internal/ingest"
	"github.com/trainingpulse/trainingpulse/agent/internal/shipper"
	"github.com/trainingpulse/trainingpulse/pkg/types"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the datasets, recompute on change and ship reports to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runAgent(ctx, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

func runAgent(ctx context.Context, configPath string) error {
	slog.Info("trainingpulse-agent starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ac := cfg.Agent
	slog.Info("config loaded",
		"workspace", ac.Workspace,
		"server_endpoint", ac.ServerEndpoint,
		"participations", ac.Datasets.Participations.Location(),
		"plan", ac.Datasets.Plan.Location(),
		"poll_interval", ac.PollInterval,
	)

	partLoader, err := ingest.NewLoader(types.KindParticipations, ac.Datasets.Participations)
	if err != nil {
		return fmt.Errorf("participations: %w", err)
	}
	planLoader, err := ingest.NewLoader(types.KindPlan, ac.Datasets.Plan)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	engine := compute.NewEngine(ac.Workspace, compute.Settings{
		Thresholds: ac.Thresholds,
		AlertRules: ac.Alerts,
		Options:    compute.Options{ExcludeInvertedDates: ac.Compute.ExcludeInvertedDates},
		Board:      ac.Compute.Board,
	})

	var ship *shipper.Shipper
	if ac.ServerEndpoint != "" {
		ship, err = shipper.New(ac)
		if err != nil {
			return err
		}
		go ship.Run(ctx)
	} else {
		slog.Warn("no server_endpoint configured, reports are only logged")
	}

	publish := func() {
		rep := engine.Report(time.Now())
		slog.Info("report computed",
			"report_id", rep.ID,
			"overall", rep.Overall(),
			"alerts", len(rep.Alerts),
			"unparseable_dates", rep.Dates.Unparseable,
		)
		if ship != nil {
			ship.Ship(rep)
		}
	}

	apply := func(l *ingest.Loader, ds *types.Dataset, err error) {
		if err != nil {
			slog.Warn("dataset load failed, keeping previous contents", "kind", l.Kind(), "err", err)
			engine.Fail(l.Kind(), err)
			return
		}
		slog.Info("dataset loaded", "kind", ds.Kind, "source", ds.Source, "rows", ds.Len(),
			"dropped_empty", ds.Stats.DroppedEmpty)
		engine.Load(ds)
	}
	reload := func(loaders ...*ingest.Loader) {
		for _, l := range loaders {
			ds, err := l.Load(ctx)
			apply(l, ds, err)
		}
		publish()
	}

	part, plan, errs := ingest.LoadPair(ctx, partLoader, planLoader)
	apply(partLoader, part, errs[types.KindParticipations])
	apply(planLoader, plan, errs[types.KindPlan])
	publish()

	// Local files are watched; HTTP sources are polled.
	var watched, polled []*ingest.Loader
	byPath := make(map[string]*ingest.Loader)
	for _, l := range []*ingest.Loader{partLoader, planLoader} {
		if l.Source().Watchable() {
			watched = append(watched, l)
			byPath[l.Source().Location()] = l
		} else {
			polled = append(polled, l)
		}
	}

	if len(watched) > 0 {
		paths := make([]string, 0, len(watched))
		for _, l := range watched {
			paths = append(paths, l.Source().Location())
		}
		go func() {
			if err := config.WatchFiles(ctx, paths, func(path string) {
				slog.Info("dataset file changed", "path", path)
				reload(byPath[path])
			}); err != nil {
				slog.Error("dataset watcher stopped", "err", err)
			}
		}()
	}

	// Hot-reload logs changes only; restart the agent to apply new sources.
	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			slog.Info("config hot-reloaded, restart to apply",
				"workspace", updated.Agent.Workspace)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ticker := time.NewTicker(ac.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("trainingpulse-agent shutting down")
			return nil
		case <-ticker.C:
			// With only file sources this re-ships the current report, which
			// keeps the workspace live on the server.
			reload(polled...)
		}
	}
}
