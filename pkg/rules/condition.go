package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// Condition is a parsed "<kpi> <op> <number>" expression, for example:
//
//	wip_age_pr > 10
//	cne_pct < 90
//	lead_time_p95 > 60
//	registration_pct <= 95.5
type Condition struct {
	KPI       types.KPI
	Op        string
	Threshold float64
}

// ParseCondition parses and checks a condition string.
func ParseCondition(cond string) (Condition, error) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"<kpi> <op> <number>\"", cond)
	}
	kpi, op, rhs := types.KPI(parts[0]), parts[1], parts[2]

	if !knownKPI(kpi) {
		return Condition{}, fmt.Errorf("condition %q: unknown kpi %q", cond, kpi)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", cond, op)
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: threshold: %w", cond, err)
	}
	return Condition{KPI: kpi, Op: op, Threshold: threshold}, nil
}

// Eval reports whether the condition holds for set, along with the KPI value
// that was compared. A nil set or unparseable value never fires.
func (c Condition) Eval(set *types.KPISet) (bool, float64) {
	v, ok := set.Value(c.KPI)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.Op, c.Threshold), v
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.KPI, c.Op, strconv.FormatFloat(c.Threshold, 'f', -1, 64))
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}

func knownKPI(k types.KPI) bool {
	for _, known := range types.AllKPIs {
		if k == known {
			return true
		}
	}
	return false
}
