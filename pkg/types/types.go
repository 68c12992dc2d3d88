package types

import (
	"strconv"
	"time"
)

// Dataset kinds. Exactly two slots exist at a time.
const (
	KindParticipations = "participations"
	KindPlan           = "plan"
)

// Row maps a column name to its trimmed value. Every header key is present;
// values missing from a short line are the empty string.
type Row map[string]string

// Get returns the value for the first of keys that is non-empty.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// ParseStats counts what the parser kept and silently discarded.
type ParseStats struct {
	Lines        int `json:"lines"`         // non-header lines seen
	Kept         int `json:"kept"`          // rows in the dataset
	DroppedEmpty int `json:"dropped_empty"` // first-column value empty or absent
	ShortLines   int `json:"short_lines"`   // fewer values than headers
	LongLines    int `json:"long_lines"`    // more values than headers; extras ignored
}

// Dataset is an ordered sequence of rows sharing one header set.
// A Dataset is never mutated after it is built; a reload produces a new one.
type Dataset struct {
	Kind     string     `json:"kind"`
	Source   string     `json:"source"`
	Headers  []string   `json:"headers"`
	Rows     []Row      `json:"rows"`
	Stats    ParseStats `json:"stats"`
	LoadedAt time.Time  `json:"loaded_at"`
}

// Len returns the row count; a nil Dataset has zero rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// KPI is one of the fixed, enumerated metric names.
type KPI string

const (
	KPICNE          KPI = "cne_pct"
	KPILeadTimeP95  KPI = "lead_time_p95"
	KPIWIPAgeEP     KPI = "wip_age_ep"
	KPIWIPAgePR     KPI = "wip_age_pr"
	KPIThroughput   KPI = "throughput"
	KPIConversion   KPI = "conversion_pct"
	KPIRegistration KPI = "registration_pct"
)

// AllKPIs lists every KPI in display order.
var AllKPIs = []KPI{
	KPICNE,
	KPILeadTimeP95,
	KPIWIPAgeEP,
	KPIWIPAgePR,
	KPIThroughput,
	KPIConversion,
	KPIRegistration,
}

// KPISet holds the seven metrics computed from the participations dataset.
// Percentages are kept as text with exactly one decimal digit ("97.5");
// callers comparing them must go through Value.
type KPISet struct {
	CNEPct          string `json:"cne_pct"`
	LeadTimeP95     int    `json:"lead_time_p95"`
	WIPAgeEP        int    `json:"wip_age_ep"`
	WIPAgePR        int    `json:"wip_age_pr"`
	Throughput      int    `json:"throughput"`
	ConversionPct   string `json:"conversion_pct"`
	RegistrationPct string `json:"registration_pct"`
}

// Value returns the numeric value of one KPI. ok is false for an unknown
// name or a percentage that does not parse.
func (k *KPISet) Value(name KPI) (float64, bool) {
	if k == nil {
		return 0, false
	}
	switch name {
	case KPICNE:
		return parsePct(k.CNEPct)
	case KPILeadTimeP95:
		return float64(k.LeadTimeP95), true
	case KPIWIPAgeEP:
		return float64(k.WIPAgeEP), true
	case KPIWIPAgePR:
		return float64(k.WIPAgePR), true
	case KPIThroughput:
		return float64(k.Throughput), true
	case KPIConversion:
		return parsePct(k.ConversionPct)
	case KPIRegistration:
		return parsePct(k.RegistrationPct)
	default:
		return 0, false
	}
}

// Text returns the display form of one KPI.
func (k *KPISet) Text(name KPI) string {
	if k == nil {
		return ""
	}
	switch name {
	case KPICNE:
		return k.CNEPct
	case KPIConversion:
		return k.ConversionPct
	case KPIRegistration:
		return k.RegistrationPct
	}
	v, ok := k.Value(name)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Values returns every KPI as a number. A nil set yields nil.
func (k *KPISet) Values() map[KPI]float64 {
	if k == nil {
		return nil
	}
	out := make(map[KPI]float64, len(AllKPIs))
	for _, name := range AllKPIs {
		if v, ok := k.Value(name); ok {
			out[name] = v
		}
	}
	return out
}

func parsePct(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Severity is the traffic-light state of a KPI. Gray means no data.
type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
	SeverityGray   Severity = "gray"
)

// Rank orders severities: gray < red < yellow < green.
func (s Severity) Rank() int {
	switch s {
	case SeverityRed:
		return 1
	case SeverityYellow:
		return 2
	case SeverityGreen:
		return 3
	default:
		return 0
	}
}

// Alert is one entry of the prioritized warning list.
type Alert struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
	Value    float64  `json:"value"`
}

// StatusCount is one slice of the status distribution.
type StatusCount struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// Card is one record on the board.
type Card struct {
	Course      string `json:"course"`
	Participant string `json:"participant"`
	Criticality string `json:"criticality,omitempty"`
}

// BoardColumn groups the records that share a status.
type BoardColumn struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	Cards  []Card `json:"cards"`
}

// DateStats counts rows whose dates were unusable or suspicious while
// computing the date-based KPIs.
type DateStats struct {
	Unparseable int `json:"unparseable"` // a date field was set but could not be parsed
	Inverted    int `json:"inverted"`    // closed before it started
	Future      int `json:"future"`      // open item starting after today
}

// DatasetSummary describes one dataset slot at report time.
type DatasetSummary struct {
	Kind     string     `json:"kind"`
	Source   string     `json:"source,omitempty"`
	Rows     int        `json:"rows"`
	Stats    ParseStats `json:"stats"`
	LoadedAt time.Time  `json:"loaded_at,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Report is the full recomputation result for one workspace.
// KPIs is nil until both datasets are present.
type Report struct {
	ID           string            `json:"id" validate:"required"`
	Workspace    string            `json:"workspace" validate:"required"`
	GeneratedAt  time.Time         `json:"generated_at" validate:"required"`
	KPIs         *KPISet           `json:"kpis"`
	Severities   map[KPI]Severity  `json:"severities"`
	Alerts       []Alert           `json:"alerts"`
	Distribution []StatusCount     `json:"distribution"`
	Board        []BoardColumn     `json:"board,omitempty"`
	Datasets     []DatasetSummary  `json:"datasets" validate:"dive"`
	Dates        DateStats         `json:"dates"`
}

// Overall returns the worst severity across all KPIs, or gray without data.
func (r *Report) Overall() Severity {
	if r == nil || r.KPIs == nil || len(r.Severities) == 0 {
		return SeverityGray
	}
	worst := SeverityGreen
	for _, s := range r.Severities {
		if s == SeverityGray {
			continue
		}
		if s.Rank() < worst.Rank() {
			worst = s
		}
	}
	return worst
}
