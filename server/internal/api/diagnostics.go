package api

import (
	"fmt"
	"sort"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

// Hint levels, most severe first.
const (
	levelCritical = "critical"
	levelWarning  = "warning"
	levelInfo     = "info"
	levelOK       = "ok"
)

// DiagnosticHint is one human-readable insight about a workspace's data
// quality. The UI shows these as chips on the workspace card.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short chip label.
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional count associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from a report.
// Hints are ordered: critical first, then warnings, then info.
func computeDiagnostics(rep *types.Report) []DiagnosticHint {
	var hints []DiagnosticHint

	// Load failures and missing slots.
	loaded := map[string]bool{}
	for _, ds := range rep.Datasets {
		if ds.Error != "" {
			hints = append(hints, DiagnosticHint{
				Key:   "load_failed_" + ds.Kind,
				Level: levelCritical,
				Title: fmt.Sprintf("Can't load %s", ds.Kind),
				Detail: fmt.Sprintf(
					"The agent could not read the %s dataset from %q and got: %q. "+
						"The report keeps using the last good copy if there is one.",
					ds.Kind, ds.Source, ds.Error),
			})
		}
		if ds.Rows > 0 || !ds.LoadedAt.IsZero() {
			loaded[ds.Kind] = true
		}
	}

	if rep.KPIs == nil {
		var missing []string
		for _, kind := range []string{types.KindParticipations, types.KindPlan} {
			if !loaded[kind] {
				missing = append(missing, kind)
			}
		}
		hints = append(hints, DiagnosticHint{
			Key:   "no_data",
			Level: levelCritical,
			Title: "No KPIs yet",
			Detail: fmt.Sprintf(
				"KPIs are computed only once both the participations and plan datasets are loaded. "+
					"Still missing: %v.", missing),
		})
		return sortHints(hints)
	}

	for _, ds := range rep.Datasets {
		if ds.Kind == types.KindParticipations && ds.Rows == 0 && ds.Error == "" {
			hints = append(hints, DiagnosticHint{
				Key:   "empty_participations",
				Level: levelWarning,
				Title: "No participations",
				Detail: "The participations dataset has no rows. Every count-based KPI is zero " +
					"and the percentages read 0.0.",
			})
		}
		if n := ds.Stats.DroppedEmpty; n > 0 {
			hints = append(hints, countHint("dropped_rows_"+ds.Kind, levelInfo,
				fmt.Sprintf("%d rows skipped", n),
				fmt.Sprintf("%d lines of the %s dataset had an empty first column and were left out.", n, ds.Kind),
				n))
		}
		if n := ds.Stats.ShortLines; n > 0 {
			hints = append(hints, countHint("short_lines_"+ds.Kind, levelInfo,
				fmt.Sprintf("%d short lines", n),
				fmt.Sprintf("%d lines of the %s dataset had fewer values than headers; "+
					"the missing columns were read as empty.", n, ds.Kind),
				n))
		}
		if n := ds.Stats.LongLines; n > 0 {
			hints = append(hints, countHint("long_lines_"+ds.Kind, levelWarning,
				fmt.Sprintf("%d long lines", n),
				fmt.Sprintf("%d lines of the %s dataset had more values than headers. "+
					"This usually means a value contains a comma; the extra values were ignored.", n, ds.Kind),
				n))
		}
	}

	if n := rep.Dates.Unparseable; n > 0 {
		hints = append(hints, countHint("unparseable_dates", levelWarning,
			fmt.Sprintf("%d bad dates", n),
			fmt.Sprintf("%d rows have a start or close date that could not be read. "+
				"They are left out of lead time and WIP age.", n),
			n))
	}
	if n := rep.Dates.Inverted; n > 0 {
		hints = append(hints, countHint("inverted_dates", levelWarning,
			fmt.Sprintf("%d inverted dates", n),
			fmt.Sprintf("%d closed rows have a close date before their start date.", n),
			n))
	}
	if n := rep.Dates.Future; n > 0 {
		hints = append(hints, countHint("future_starts", levelInfo,
			fmt.Sprintf("%d future starts", n),
			fmt.Sprintf("%d open rows start after today and have a negative age.", n),
			n))
	}

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "all_clear",
			Level:  levelOK,
			Title:  "All clear",
			Detail: "Both datasets loaded cleanly and every date was usable.",
		})
	}
	return sortHints(hints)
}

func countHint(key, level, title, detail string, n int) DiagnosticHint {
	v := float64(n)
	return DiagnosticHint{Key: key, Level: level, Title: title, Detail: detail, Value: &v}
}

func levelRank(level string) int {
	switch level {
	case levelCritical:
		return 0
	case levelWarning:
		return 1
	case levelInfo:
		return 2
	default:
		return 3
	}
}

// sortHints orders by level, keeping insertion order within a level.
func sortHints(hints []DiagnosticHint) []DiagnosticHint {
	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank(hints[i].Level) < levelRank(hints[j].Level)
	})
	return hints
}
