package compute

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// throughputWindowDays is the trailing window for weekly throughput.
const throughputWindowDays = 7

// p95 is the percentile used for lead time.
const p95 = 0.95

var hundred = decimal.NewFromInt(100)

// Options tunes how suspicious dates are treated.
type Options struct {
	// ExcludeInvertedDates drops negative lead times (closed before started)
	// and negative WIP ages (start after now) from their aggregates. When
	// false they are included as-is. Either way they are counted in DateStats.
	ExcludeInvertedDates bool
}

// Compute derives the KPI set from the participations dataset. Both datasets
// must be present; otherwise the result is nil, meaning "no data". The plan
// dataset gates the computation but contributes no values.
//
// now is the reference "today" for WIP age and throughput.
func Compute(participations, plan *types.Dataset, now time.Time, opts Options) (*types.KPISet, types.DateStats) {
	var stats types.DateStats
	if participations == nil || plan == nil {
		return nil, stats
	}

	var (
		critical, criticalClosed int
		closed, notProposed      int
		registered               int
		leadTimes                []int
		ep, pr                   ageMean
		throughput               int
	)

	for _, r := range participations.Rows {
		st := statusOf(r)
		isClosed := st == StatusClosed

		if isCritical(r) {
			critical++
			if isClosed {
				criticalClosed++
			}
		}
		if isClosed {
			closed++
		}
		if st != StatusProposed {
			notProposed++
		}
		if isRegistered(r) {
			registered++
		}

		start, startOK, startBad := dateField(r, ColStart)
		end, endOK, endBad := dateField(r, ColClose)
		if startBad || endBad {
			stats.Unparseable++
		}

		if isClosed && startOK && endOK {
			lt := dayDelta(start, end)
			if lt < 0 {
				stats.Inverted++
			}
			if lt >= 0 || !opts.ExcludeInvertedDates {
				leadTimes = append(leadTimes, lt)
			}
		}

		if (st == StatusInProgress || st == StatusPendingRegistration) && startOK {
			age := dayDelta(start, now)
			if age < 0 {
				stats.Future++
			}
			if age >= 0 || !opts.ExcludeInvertedDates {
				if st == StatusInProgress {
					ep.add(age)
				} else {
					pr.add(age)
				}
			}
		}

		// No lower bound: a close date in the future also counts.
		if endOK && dayDelta(end, now) <= throughputWindowDays {
			throughput++
		}
	}

	return &types.KPISet{
		CNEPct:          percent(criticalClosed, critical),
		LeadTimeP95:     percentile95(leadTimes),
		WIPAgeEP:        ep.rounded(),
		WIPAgePR:        pr.rounded(),
		Throughput:      throughput,
		ConversionPct:   percent(closed, notProposed),
		RegistrationPct: percent(registered, participations.Len()),
	}, stats
}

// dateField parses one date column. bad is true when the field is set but
// cannot be parsed; such rows are left out of date aggregates.
func dateField(r types.Row, col string) (t time.Time, ok, bad bool) {
	raw := r[col]
	if raw == "" {
		return time.Time{}, false, false
	}
	t, ok = parseDate(raw)
	return t, ok, !ok
}

// percent returns num/den*100 with exactly one decimal digit, or "0.0" when
// den is zero.
func percent(num, den int) string {
	if den == 0 {
		return decimal.Zero.StringFixed(1)
	}
	return decimal.NewFromInt(int64(num)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(den))).
		StringFixed(1)
}

// percentile95 sorts the values and picks index floor(n*0.95); 0 when empty.
func percentile95(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	idx := int(math.Floor(float64(len(sorted)) * p95))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ageMean accumulates day ages for a rounded mean.
type ageMean struct {
	sum, n int
}

func (m *ageMean) add(days int) {
	m.sum += days
	m.n++
}

// rounded returns the mean rounded half up, or 0 with no samples.
func (m ageMean) rounded() int {
	if m.n == 0 {
		return 0
	}
	return int(math.Floor(float64(m.sum)/float64(m.n) + 0.5))
}
