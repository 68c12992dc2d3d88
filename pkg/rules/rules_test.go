package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

func nominalSet() *types.KPISet {
	return &types.KPISet{
		CNEPct:          "97.0",
		LeadTimeP95:     30,
		WIPAgeEP:        10,
		WIPAgePR:        5,
		Throughput:      130,
		ConversionPct:   "90.0",
		RegistrationPct: "99.0",
	}
}

func TestClassify_DefaultTable(t *testing.T) {
	tbl := DefaultTable()
	tests := []struct {
		kpi  types.KPI
		v    float64
		want types.Severity
	}{
		{types.KPICNE, 95, types.SeverityGreen},
		{types.KPICNE, 94.9, types.SeverityYellow},
		{types.KPICNE, 90, types.SeverityYellow},
		{types.KPICNE, 89.9, types.SeverityRed},
		{types.KPILeadTimeP95, 45, types.SeverityGreen},
		{types.KPILeadTimeP95, 46, types.SeverityYellow},
		{types.KPILeadTimeP95, 60, types.SeverityYellow},
		{types.KPILeadTimeP95, 61, types.SeverityRed},
		{types.KPIWIPAgeEP, 15, types.SeverityGreen},
		{types.KPIWIPAgeEP, 31, types.SeverityRed},
		{types.KPIWIPAgePR, 7, types.SeverityGreen},
		{types.KPIWIPAgePR, 10, types.SeverityYellow},
		{types.KPIWIPAgePR, 11, types.SeverityRed},
		{types.KPIThroughput, 120, types.SeverityGreen},
		{types.KPIThroughput, 100, types.SeverityYellow},
		{types.KPIThroughput, 99, types.SeverityRed},
		{types.KPIConversion, 85, types.SeverityGreen},
		{types.KPIConversion, 75, types.SeverityYellow},
		{types.KPIConversion, 74.9, types.SeverityRed},
		{types.KPIRegistration, 98, types.SeverityGreen},
		{types.KPIRegistration, 95, types.SeverityYellow},
		{types.KPIRegistration, 0, types.SeverityRed},
		{types.KPI("unknown"), 50, types.SeverityGray},
	}
	for _, tc := range tests {
		t.Run(string(tc.kpi), func(t *testing.T) {
			assert.Equal(t, tc.want, tbl.Classify(tc.kpi, tc.v), "value %v", tc.v)
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	tbl := DefaultTable()
	for _, th := range DefaultThresholds() {
		prev := -1
		for v := -10.0; v <= 200; v += 0.5 {
			rank := tbl.Classify(th.KPI, v).Rank()
			if th.Polarity == LowerBetter {
				// Walking upward must never improve a lower-better KPI.
				if prev >= 0 && rank > prev {
					t.Fatalf("%s: severity improved from rank %d to %d at %v", th.KPI, prev, rank, v)
				}
			} else if prev >= 0 && rank < prev {
				t.Fatalf("%s: severity degraded from rank %d to %d at %v", th.KPI, prev, rank, v)
			}
			prev = rank
		}
	}
}

func TestClassifyAll_NilSetIsGray(t *testing.T) {
	got := DefaultTable().ClassifyAll(nil)
	require.Len(t, got, len(types.AllKPIs))
	for kpi, sev := range got {
		assert.Equal(t, types.SeverityGray, sev, kpi)
	}
}

func TestClassifyAll_ParsesPercentText(t *testing.T) {
	set := nominalSet()
	set.CNEPct = "85.0"
	got := DefaultTable().ClassifyAll(set)
	assert.Equal(t, types.SeverityRed, got[types.KPICNE])
	assert.Equal(t, types.SeverityGreen, got[types.KPIRegistration])
}

func TestMerge_OverridesOneKPI(t *testing.T) {
	tbl := DefaultTable().Merge([]Threshold{
		{KPI: types.KPIThroughput, Green: 10, Yellow: 5, Polarity: HigherBetter},
	})
	assert.Equal(t, types.SeverityGreen, tbl.Classify(types.KPIThroughput, 12))
	assert.Equal(t, types.SeverityGreen, tbl.Classify(types.KPICNE, 99))
}

func TestThreshold_Validate(t *testing.T) {
	assert.NoError(t, Threshold{KPI: types.KPICNE, Green: 95, Yellow: 90, Polarity: HigherBetter}.Validate())
	assert.Error(t, Threshold{KPI: types.KPICNE, Green: 80, Yellow: 90, Polarity: HigherBetter}.Validate())
	assert.Error(t, Threshold{KPI: types.KPIWIPAgeEP, Green: 40, Yellow: 30, Polarity: LowerBetter}.Validate())
	assert.Error(t, Threshold{KPI: types.KPIWIPAgeEP, Green: 1, Yellow: 2, Polarity: "sideways"}.Validate())
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition("cne_pct < 90")
	require.NoError(t, err)
	assert.Equal(t, Condition{KPI: types.KPICNE, Op: "<", Threshold: 90}, c)
	assert.Equal(t, "cne_pct < 90", c.String())

	for _, bad := range []string{"", "cne_pct <", "drop_pct > 10", "cne_pct ~ 10", "cne_pct > ten"} {
		_, err := ParseCondition(bad)
		assert.Error(t, err, bad)
	}
}

func TestDerive_NilSetNoAlerts(t *testing.T) {
	assert.Empty(t, Derive(nil, DefaultAlertRules()))
}

func TestDerive_AllNominal(t *testing.T) {
	got := Derive(nominalSet(), DefaultAlertRules())
	require.Len(t, got, 1)
	assert.Equal(t, Nominal, got[0].Rule)
	assert.Equal(t, types.SeverityGreen, got[0].Severity)
}

func TestDerive_PriorityOrder(t *testing.T) {
	set := nominalSet()
	set.WIPAgePR = 12
	set.CNEPct = "85.0"

	got := Derive(set, DefaultAlertRules())
	require.Len(t, got, 2)
	assert.Equal(t, "wip_age_pr_critical", got[0].Rule)
	assert.Equal(t, types.SeverityRed, got[0].Severity)
	assert.Equal(t, "WIP Age PR exceeds critical threshold", got[0].Title)
	assert.Contains(t, got[0].Detail, "12")
	assert.Equal(t, "cne_below_threshold", got[1].Rule)
	assert.Contains(t, got[1].Detail, "85.0%")
	for _, a := range got {
		assert.NotEqual(t, Nominal, a.Rule)
	}
}

func TestDerive_AllThreeFire(t *testing.T) {
	set := nominalSet()
	set.WIPAgePR = 11
	set.CNEPct = "10.0"
	set.LeadTimeP95 = 61

	got := Derive(set, DefaultAlertRules())
	require.Len(t, got, 3)
	assert.Equal(t, "lead_time_p95_elevated", got[2].Rule)
	assert.Equal(t, types.SeverityYellow, got[2].Severity)
	assert.Equal(t, "61 days from planning to closure", got[2].Detail)
}

func TestAlertRule_Validate(t *testing.T) {
	for _, r := range DefaultAlertRules() {
		assert.NoError(t, r.Validate(), r.Name)
	}
	assert.Error(t, AlertRule{Name: "x", Condition: "cne_pct < 90", Severity: types.SeverityGreen}.Validate())
	assert.Error(t, AlertRule{Condition: "cne_pct < 90", Severity: types.SeverityRed}.Validate())
}
