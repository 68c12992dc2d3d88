package rules

import (
	"fmt"
	"strings"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// AlertRule is one entry of the ordered alert list.
type AlertRule struct {
	// Name is the stable identifier, used as the deduplication key server-side.
	Name string `yaml:"name" json:"name"`

	// Condition is "<kpi> <op> <number>", e.g. "wip_age_pr > 10".
	Condition string `yaml:"condition" json:"condition"`

	// Severity is red or yellow.
	Severity types.Severity `yaml:"severity" json:"severity"`

	Title string `yaml:"title" json:"title"`

	// Detail may contain {value}, replaced by the KPI's display text.
	Detail string `yaml:"detail" json:"detail"`
}

// Validate parses the condition and checks the severity.
func (r AlertRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("alert rule: name is required")
	}
	if _, err := ParseCondition(r.Condition); err != nil {
		return fmt.Errorf("alert rule %q: %w", r.Name, err)
	}
	switch r.Severity {
	case types.SeverityRed, types.SeverityYellow:
	default:
		return fmt.Errorf("alert rule %q: severity %q: want red|yellow", r.Name, r.Severity)
	}
	return nil
}

// Nominal is the rule name of the all-clear entry.
const Nominal = "all_nominal"

// DefaultAlertRules returns the three rules in priority order.
func DefaultAlertRules() []AlertRule {
	return []AlertRule{
		{
			Name:      "wip_age_pr_critical",
			Condition: "wip_age_pr > 10",
			Severity:  types.SeverityRed,
			Title:     "WIP Age PR exceeds critical threshold",
			Detail:    "Average {value} days in pending registration",
		},
		{
			Name:      "cne_below_threshold",
			Condition: "cne_pct < 90",
			Severity:  types.SeverityRed,
			Title:     "Critical CNE% below threshold",
			Detail:    "Regulatory compliance at {value}%",
		},
		{
			Name:      "lead_time_p95_elevated",
			Condition: "lead_time_p95 > 60",
			Severity:  types.SeverityYellow,
			Title:     "Elevated p95 lead time",
			Detail:    "{value} days from planning to closure",
		},
	}
}

// Fire evaluates a single rule. ok is false when the rule does not fire or
// its condition cannot be parsed.
func (r AlertRule) Fire(set *types.KPISet) (types.Alert, bool) {
	cond, err := ParseCondition(r.Condition)
	if err != nil {
		return types.Alert{}, false
	}
	fires, v := cond.Eval(set)
	if !fires {
		return types.Alert{}, false
	}
	return types.Alert{
		Rule:     r.Name,
		Severity: r.Severity,
		Title:    r.Title,
		Detail:   strings.ReplaceAll(r.Detail, "{value}", set.Text(cond.KPI)),
		Value:    v,
	}, true
}

// Derive evaluates rules in order against set. A nil set yields no alerts.
// Alerts are additive; the green nominal entry appears only when none fired.
func Derive(set *types.KPISet, rules []AlertRule) []types.Alert {
	if set == nil {
		return nil
	}
	var out []types.Alert
	for _, r := range rules {
		if a, ok := r.Fire(set); ok {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		out = append(out, types.Alert{
			Rule:     Nominal,
			Severity: types.SeverityGreen,
			Title:    "All KPIs nominal",
			Detail:   "Operating within standards",
		})
	}
	return out
}
