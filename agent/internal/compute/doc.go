// Package compute derives the training KPI report from the two datasets.
//
// kpi.go provides the pure Compute(participations, plan, now, opts) function.
// It returns nil unless both datasets are present, so callers show an empty
// state rather than zero-valued KPIs. Percentages are computed with exact
// decimal arithmetic and rendered with one decimal digit.
//
// dates.go parses ISO-like dates (and spreadsheet serial numbers) and
// computes floor day deltas. status.go maps status codes and their Spanish or
// English long forms onto the five canonical statuses.
//
// board.go groups records by status for the distribution and the board.
//
// engine.go provides the Engine that holds the two dataset slots. Load
// replaces a slot wholesale; Report recomputes everything from the current
// slots. Report accepts an injectable time.Time so tests are deterministic.
package compute
