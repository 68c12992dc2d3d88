package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKPISet_Value(t *testing.T) {
	set := &KPISet{
		CNEPct:          "97.5",
		LeadTimeP95:     30,
		WIPAgeEP:        10,
		WIPAgePR:        5,
		Throughput:      130,
		ConversionPct:   "90.0",
		RegistrationPct: "bogus",
	}

	v, ok := set.Value(KPICNE)
	assert.True(t, ok)
	assert.Equal(t, 97.5, v)

	v, ok = set.Value(KPIThroughput)
	assert.True(t, ok)
	assert.Equal(t, 130.0, v)

	_, ok = set.Value(KPIRegistration)
	assert.False(t, ok, "unparseable percentage")

	_, ok = set.Value(KPI("drop_pct"))
	assert.False(t, ok)

	var none *KPISet
	_, ok = none.Value(KPICNE)
	assert.False(t, ok)
	assert.Nil(t, none.Values())
}

func TestKPISet_Text(t *testing.T) {
	set := &KPISet{CNEPct: "100.0", LeadTimeP95: 20}
	assert.Equal(t, "100.0", set.Text(KPICNE))
	assert.Equal(t, "20", set.Text(KPILeadTimeP95))
	assert.Equal(t, "", set.Text(KPI("unknown")))
}

func TestKPISet_ValuesSkipsUnparseable(t *testing.T) {
	set := &KPISet{CNEPct: "50.0", ConversionPct: "", RegistrationPct: "0.0"}
	vals := set.Values()
	assert.Len(t, vals, len(AllKPIs)-1)
	assert.NotContains(t, vals, KPIConversion)
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityGray.Rank(), SeverityRed.Rank())
	assert.Less(t, SeverityRed.Rank(), SeverityYellow.Rank())
	assert.Less(t, SeverityYellow.Rank(), SeverityGreen.Rank())
	assert.Equal(t, 0, Severity("purple").Rank())
}

func TestReport_Overall(t *testing.T) {
	tests := []struct {
		name string
		rep  *Report
		want Severity
	}{
		{"nil report", nil, SeverityGray},
		{"no KPIs", &Report{Severities: map[KPI]Severity{KPICNE: SeverityRed}}, SeverityGray},
		{"all green", &Report{KPIs: &KPISet{}, Severities: map[KPI]Severity{KPICNE: SeverityGreen, KPIThroughput: SeverityGreen}}, SeverityGreen},
		{"worst wins", &Report{KPIs: &KPISet{}, Severities: map[KPI]Severity{KPICNE: SeverityYellow, KPIThroughput: SeverityRed}}, SeverityRed},
		{"gray ignored", &Report{KPIs: &KPISet{}, Severities: map[KPI]Severity{KPICNE: SeverityGray, KPIThroughput: SeverityYellow}}, SeverityYellow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rep.Overall())
		})
	}
}

func TestRow_Get(t *testing.T) {
	r := Row{"Curso": "", "NombreCurso": "Seguridad"}
	assert.Equal(t, "Seguridad", r.Get("Curso", "NombreCurso"))
	assert.Equal(t, "", r.Get("Missing"))
}
