package api

import (
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/trainingpulse/trainingpulse/pkg/types"
	"github.com/trainingpulse/trainingpulse/server/internal/store"
)

const metricPrefix = "trainingpulse_"

// MetricsHandler serves GET /metrics: the live workspaces' KPIs, severities
// and dataset sizes in the Prometheus text exposition format.
func MetricsHandler(st *store.Store, al AlertSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range gatherFamilies(st, al, time.Now()) {
			if err := enc.Encode(mf); err != nil {
				slog.Warn("api: encode metrics", "family", mf.GetName(), "err", err)
				return
			}
		}
	})
}

// gatherFamilies builds one family per exported series name. Families with
// no samples are omitted.
func gatherFamilies(st *store.Store, al AlertSource, now time.Time) []*dto.MetricFamily {
	entries := st.List()

	kpiValue := gauge("kpi_value", "Current KPI value per workspace.")
	kpiSeverity := gauge("kpi_severity", "Traffic-light state per KPI; the series with value 1 is current.")
	datasetRows := gauge("dataset_rows", "Rows in each loaded dataset.")
	reportAge := gauge("report_age_seconds", "Seconds since the workspace's report was received.")
	workspaces := gauge("workspaces", "Live workspaces held by the server.")
	firing := gauge("alerts_firing", "Server-side alerts currently firing.")

	workspaces.Metric = append(workspaces.Metric, sample(float64(len(entries))))
	if al != nil {
		firing.Metric = append(firing.Metric, sample(float64(al.FiringCount())))
	}

	for _, e := range entries {
		rep := e.Report
		ws := rep.Workspace
		reportAge.Metric = append(reportAge.Metric,
			sample(now.Sub(e.UpdatedAt).Seconds(), "workspace", ws))

		for _, ds := range rep.Datasets {
			datasetRows.Metric = append(datasetRows.Metric,
				sample(float64(ds.Rows), "workspace", ws, "dataset", ds.Kind))
		}

		if rep.KPIs == nil {
			continue
		}
		for _, kpi := range types.AllKPIs {
			v, ok := rep.KPIs.Value(kpi)
			if !ok {
				continue
			}
			kpiValue.Metric = append(kpiValue.Metric,
				sample(v, "workspace", ws, "kpi", string(kpi)))

			sev := rep.Severities[kpi]
			for _, s := range []types.Severity{types.SeverityGreen, types.SeverityYellow, types.SeverityRed, types.SeverityGray} {
				var one float64
				if s == sev {
					one = 1
				}
				kpiSeverity.Metric = append(kpiSeverity.Metric,
					sample(one, "workspace", ws, "kpi", string(kpi), "severity", string(s)))
			}
		}
	}

	var out []*dto.MetricFamily
	for _, mf := range []*dto.MetricFamily{kpiValue, kpiSeverity, datasetRows, reportAge, workspaces, firing} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

func gauge(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(metricPrefix + name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

// sample builds one gauge sample; labels are name/value pairs.
func sample(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
