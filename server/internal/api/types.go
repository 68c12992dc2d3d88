package api

import "github.com/trainingpulse/trainingpulse/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is the worst overall severity across live workspaces, or gray.
	State          types.Severity `json:"state"`
	WorkspaceCount int            `json:"workspace_count"`
	GreenCount     int            `json:"green_count"`
	YellowCount    int            `json:"yellow_count"`
	RedCount       int            `json:"red_count"`
	GrayCount      int            `json:"gray_count"`
	AlertCount     int            `json:"alert_count"`
}

// WorkspaceResponse is one workspace entry in GET /api/v1/workspaces or
// GET /api/v1/workspaces/{id}.
type WorkspaceResponse struct {
	Workspace    string                       `json:"workspace"`
	ReportID     string                       `json:"report_id"`
	GeneratedAt  string                       `json:"generated_at"` // RFC3339
	Overall      types.Severity               `json:"overall"`
	KPIs         *types.KPISet                `json:"kpis"`
	Severities   map[types.KPI]types.Severity `json:"severities"`
	Alerts       []types.Alert                `json:"alerts"`
	Distribution []types.StatusCount          `json:"distribution"`
	Board        []types.BoardColumn          `json:"board,omitempty"`
	Datasets     []types.DatasetSummary       `json:"datasets"`
	Dates        types.DateStats              `json:"dates"`
	Diagnostics  []DiagnosticHint             `json:"diagnostics"`
	LastSeen     string                       `json:"last_seen"` // RFC3339
}

// HistoryPoint is one stored report in GET /api/v1/workspaces/{id}/history.
type HistoryPoint struct {
	ReportID    string                       `json:"report_id"`
	GeneratedAt string                       `json:"generated_at"` // RFC3339
	Overall     types.Severity               `json:"overall"`
	KPIs        *types.KPISet                `json:"kpis"`
	Severities  map[types.KPI]types.Severity `json:"severities"`
}

// HistoryResponse is the payload for GET /api/v1/workspaces/{id}/history.
type HistoryResponse struct {
	Workspace string         `json:"workspace"`
	Reports   []HistoryPoint `json:"reports"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Workspaces  []WorkspaceResponse `json:"workspaces"`
	GeneratedAt string              `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
