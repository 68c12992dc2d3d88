package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trainingpulse/trainingpulse/pkg/rules"
	"github.com/trainingpulse/trainingpulse/pkg/types"
	"github.com/trainingpulse/trainingpulse/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string         `json:"id"`
	RuleName   string         `json:"rule_name"`
	Workspace  string         `json:"workspace"`
	Severity   types.Severity `json:"severity"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Value      float64        `json:"value"`
	FiredAt    time.Time      `json:"fired_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	State      string         `json:"state"`
}

// Engine evaluates alert rules against incoming reports and delivers webhook
// notifications when rules fire or resolve. Alerts are keyed by rule and
// workspace.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	now      func() time.Time

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:workspace"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
}

// New creates an Engine from the server alert configuration. With no rules
// configured the built-in KPI alert rules are used.
func New(cfg config.AlertsConfig) *Engine {
	rs := cfg.Rules
	if len(rs) == 0 {
		for _, r := range rules.DefaultAlertRules() {
			rs = append(rs, config.AlertRule{AlertRule: r})
		}
	}
	return &Engine{
		rules:    rs,
		webhooks: cfg.Webhooks,
		now:      time.Now,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate tests all rules against rep.KPIs.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
// A report without KPIs leaves the alert state untouched.
func (e *Engine) Evaluate(rep *types.Report) {
	if rep == nil || rep.KPIs == nil {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name + ":" + rep.Workspace
		fired, fires := rule.Fire(rep.KPIs)

		e.mu.Lock()

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if _, firing := e.active[key]; firing || now.Sub(e.lastFire[key]) <= cooldown {
				e.mu.Unlock()
				continue
			}
			a := &Alert{
				ID:        uuid.NewString(),
				RuleName:  rule.Name,
				Workspace: rep.Workspace,
				Severity:  fired.Severity,
				Title:     fired.Title,
				Value:     fired.Value,
				Message: fmt.Sprintf("[%s] %s on %s: %s",
					fired.Severity, fired.Title, rep.Workspace, fired.Detail),
				FiredAt: now,
				State:   StateFiring,
			}
			e.active[key] = a
			e.lastFire[key] = now
			alertCopy := *a
			e.mu.Unlock()

			slog.Warn("alert fired",
				"rule", rule.Name,
				"workspace", rep.Workspace,
				"value", fired.Value,
				"severity", fired.Severity,
			)
			go e.deliver(&alertCopy)
			continue
		}

		a, ok := e.active[key]
		if !ok {
			e.mu.Unlock()
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		alertCopy := *a
		e.mu.Unlock()

		slog.Info("alert resolved",
			"rule", rule.Name,
			"workspace", rep.Workspace,
		)
		go e.deliver(&alertCopy)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
