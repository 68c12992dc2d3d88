package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/trainingpulse/trainingpulse/agent/internal/compute"
	"github.com/trainingpulse/trainingpulse/agent/internal/config"
	"github.com/trainingpulse/trainingpulse/agent/internal/ingest"
	"github.com/trainingpulse/trainingpulse/agent/internal/render"
	"github.com/trainingpulse/trainingpulse/pkg/types"
)

type reportOptions struct {
	participations string
	plan           string
	format         string
	sheet          string
	today          string
	workspace      string
	asJSON         bool
	board          bool
	excludeInv     bool
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the KPI report once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.participations, "participations", "", "participations dataset file (required)")
	cmd.Flags().StringVar(&opts.plan, "plan", "", "plan dataset file (required)")
	cmd.Flags().StringVar(&opts.format, "format", config.DefaultFormat, "dataset format: csv, csv-quoted or xlsx")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "worksheet name for xlsx datasets (default: first sheet)")
	cmd.Flags().StringVar(&opts.today, "today", "", "reference date (UTC, YYYY-MM-DD); defaults to now")
	cmd.Flags().StringVar(&opts.workspace, "workspace", "local", "workspace name shown in the report")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVar(&opts.board, "board", false, "include the per-status board")
	cmd.Flags().BoolVar(&opts.excludeInv, "exclude-inverted-dates", false, "leave negative day counts out of lead time and WIP age")
	_ = cmd.MarkFlagRequired("participations")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func runReport(cmd *cobra.Command, opts reportOptions) error {
	now := time.Now().UTC()
	if opts.today != "" {
		t, err := time.Parse("2006-01-02", opts.today)
		if err != nil {
			return fmt.Errorf("invalid --today: %w", err)
		}
		now = t
	}

	src := func(path string) config.Source {
		return config.Source{Path: path, Format: opts.format, Sheet: opts.sheet}
	}
	partLoader, err := ingest.NewLoader(types.KindParticipations, src(opts.participations))
	if err != nil {
		return err
	}
	planLoader, err := ingest.NewLoader(types.KindPlan, src(opts.plan))
	if err != nil {
		return err
	}

	engine := compute.NewEngine(opts.workspace, compute.Settings{
		Options: compute.Options{ExcludeInvertedDates: opts.excludeInv},
		Board:   opts.board,
	})
	part, plan, errs := ingest.LoadPair(cmd.Context(), partLoader, planLoader)
	for kind, err := range errs {
		engine.Fail(kind, err)
	}
	if part != nil {
		engine.Load(part)
	}
	if plan != nil {
		engine.Load(plan)
	}

	rep := engine.Report(now)
	if err := printReport(cmd.OutOrStdout(), rep, opts.asJSON); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d dataset(s) failed to load", len(errs))
	}
	return nil
}

func printReport(w io.Writer, rep *types.Report, asJSON bool) error {
	if !asJSON {
		return render.Report(w, rep)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
