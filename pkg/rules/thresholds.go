package rules

import (
	"fmt"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// Polarity says which direction of a KPI is good.
type Polarity string

const (
	HigherBetter Polarity = "higher"
	LowerBetter  Polarity = "lower"
)

// Threshold is one row of the classification table.
type Threshold struct {
	KPI      types.KPI `yaml:"kpi" json:"kpi"`
	Green    float64   `yaml:"green" json:"green"`
	Yellow   float64   `yaml:"yellow" json:"yellow"`
	Polarity Polarity  `yaml:"polarity" json:"polarity"`
}

// Validate checks that the bounds are ordered consistently with the polarity.
func (t Threshold) Validate() error {
	switch t.Polarity {
	case HigherBetter:
		if t.Green < t.Yellow {
			return fmt.Errorf("threshold %s: green %.2f must be >= yellow %.2f for higher-better", t.KPI, t.Green, t.Yellow)
		}
	case LowerBetter:
		if t.Green > t.Yellow {
			return fmt.Errorf("threshold %s: green %.2f must be <= yellow %.2f for lower-better", t.KPI, t.Green, t.Yellow)
		}
	default:
		return fmt.Errorf("threshold %s: unknown polarity %q: want higher|lower", t.KPI, t.Polarity)
	}
	return nil
}

// classify maps v to a severity. The boundaries themselves are inclusive.
func (t Threshold) classify(v float64) types.Severity {
	if t.Polarity == LowerBetter {
		switch {
		case v <= t.Green:
			return types.SeverityGreen
		case v <= t.Yellow:
			return types.SeverityYellow
		default:
			return types.SeverityRed
		}
	}
	switch {
	case v >= t.Green:
		return types.SeverityGreen
	case v >= t.Yellow:
		return types.SeverityYellow
	default:
		return types.SeverityRed
	}
}

// DefaultThresholds returns the standard traffic-light table.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{KPI: types.KPICNE, Green: 95, Yellow: 90, Polarity: HigherBetter},
		{KPI: types.KPILeadTimeP95, Green: 45, Yellow: 60, Polarity: LowerBetter},
		{KPI: types.KPIWIPAgeEP, Green: 15, Yellow: 30, Polarity: LowerBetter},
		{KPI: types.KPIWIPAgePR, Green: 7, Yellow: 10, Polarity: LowerBetter},
		{KPI: types.KPIThroughput, Green: 120, Yellow: 100, Polarity: HigherBetter},
		{KPI: types.KPIConversion, Green: 85, Yellow: 75, Polarity: HigherBetter},
		{KPI: types.KPIRegistration, Green: 98, Yellow: 95, Polarity: HigherBetter},
	}
}

// Table is an immutable lookup over a threshold list.
type Table struct {
	byKPI map[types.KPI]Threshold
}

// NewTable builds a Table. Later entries for the same KPI replace earlier ones.
func NewTable(ts []Threshold) Table {
	m := make(map[types.KPI]Threshold, len(ts))
	for _, t := range ts {
		m[t.KPI] = t
	}
	return Table{byKPI: m}
}

// DefaultTable is NewTable(DefaultThresholds()).
func DefaultTable() Table {
	return NewTable(DefaultThresholds())
}

// Merge returns a Table with overrides applied on top of t.
func (t Table) Merge(overrides []Threshold) Table {
	m := make(map[types.KPI]Threshold, len(t.byKPI)+len(overrides))
	for k, v := range t.byKPI {
		m[k] = v
	}
	for _, o := range overrides {
		m[o.KPI] = o
	}
	return Table{byKPI: m}
}

// Lookup returns the threshold for kpi.
func (t Table) Lookup(kpi types.KPI) (Threshold, bool) {
	th, ok := t.byKPI[kpi]
	return th, ok
}

// Classify maps a KPI value to its severity. A KPI with no table entry is gray.
func (t Table) Classify(kpi types.KPI, v float64) types.Severity {
	th, ok := t.byKPI[kpi]
	if !ok {
		return types.SeverityGray
	}
	return th.classify(v)
}

// ClassifyAll returns the severity of every KPI in set. A nil set forces
// gray for every KPI regardless of any value.
func (t Table) ClassifyAll(set *types.KPISet) map[types.KPI]types.Severity {
	out := make(map[types.KPI]types.Severity, len(types.AllKPIs))
	for _, kpi := range types.AllKPIs {
		if set == nil {
			out[kpi] = types.SeverityGray
			continue
		}
		v, ok := set.Value(kpi)
		if !ok {
			out[kpi] = types.SeverityGray
			continue
		}
		out[kpi] = t.Classify(kpi, v)
	}
	return out
}
