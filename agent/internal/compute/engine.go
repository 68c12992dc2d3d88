package compute

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trainingpulse/trainingpulse/pkg/rules"
	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// Settings configures an Engine. The zero value uses the default threshold
// table and alert rules.
type Settings struct {
	// Thresholds overrides entries of the default table.
	Thresholds []rules.Threshold
	// AlertRules replaces the default rules when non-empty.
	AlertRules []rules.AlertRule
	Options    Options
	// Board includes the per-status card grouping in reports.
	Board bool
}

// slot is one dataset position. err is the last load failure, if any; a
// failed load keeps the previous dataset.
type slot struct {
	ds  *types.Dataset
	err error
}

// Engine holds the participations and plan slots for one workspace and
// recomputes the full report from them on demand.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	workspace  string
	table      rules.Table
	alertRules []rules.AlertRule
	opts       Options
	board      bool
	newID      func() string

	mu    sync.RWMutex
	slots map[string]*slot
}

// NewEngine returns a ready-to-use Engine for workspace.
func NewEngine(workspace string, s Settings) *Engine {
	alertRules := s.AlertRules
	if len(alertRules) == 0 {
		alertRules = rules.DefaultAlertRules()
	}
	return &Engine{
		workspace:  workspace,
		table:      rules.DefaultTable().Merge(s.Thresholds),
		alertRules: alertRules,
		opts:       s.Options,
		board:      s.Board,
		newID:      uuid.NewString,
		slots: map[string]*slot{
			types.KindParticipations: {},
			types.KindPlan:           {},
		},
	}
}

// Load replaces the slot named by ds.Kind with ds. The previous dataset is
// discarded, never merged.
func (e *Engine) Load(ds *types.Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[ds.Kind]
	if !ok {
		slog.Warn("compute: ignoring dataset of unknown kind", "kind", ds.Kind)
		return
	}
	s.ds = ds
	s.err = nil
}

// Fail records a load failure for kind. The slot keeps its last dataset.
func (e *Engine) Fail(kind string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.slots[kind]; ok {
		s.err = err
	}
}

// Datasets returns the current contents of both slots.
func (e *Engine) Datasets() (participations, plan *types.Dataset) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.slots[types.KindParticipations].ds, e.slots[types.KindPlan].ds
}

// Report recomputes the KPI set, severities, alerts and groupings from the
// current slots. Calling it twice with the same slots and now yields the
// same content apart from the report ID.
func (e *Engine) Report(now time.Time) *types.Report {
	e.mu.RLock()
	part, plan := e.slots[types.KindParticipations], e.slots[types.KindPlan]
	summaries := []types.DatasetSummary{summarize(types.KindParticipations, part), summarize(types.KindPlan, plan)}
	partDS, planDS := part.ds, plan.ds
	e.mu.RUnlock()

	kpis, dates := Compute(partDS, planDS, now, e.opts)

	r := &types.Report{
		ID:           e.newID(),
		Workspace:    e.workspace,
		GeneratedAt:  now.UTC(),
		KPIs:         kpis,
		Severities:   e.table.ClassifyAll(kpis),
		Alerts:       rules.Derive(kpis, e.alertRules),
		Distribution: Distribution(partDS),
		Datasets:     summaries,
		Dates:        dates,
	}
	if e.board {
		r.Board = Board(partDS)
	}
	return r
}

func summarize(kind string, s *slot) types.DatasetSummary {
	sum := types.DatasetSummary{Kind: kind}
	if s.err != nil {
		sum.Error = s.err.Error()
	}
	if s.ds != nil {
		sum.Source = s.ds.Source
		sum.Rows = s.ds.Len()
		sum.Stats = s.ds.Stats
		sum.LoadedAt = s.ds.LoadedAt
	}
	return sum
}
