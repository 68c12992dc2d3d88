package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/trainingpulse/trainingpulse/pkg/types"
	"github.com/trainingpulse/trainingpulse/server/internal/alerts"
	"github.com/trainingpulse/trainingpulse/server/internal/store"
)

// maxHistoryLimit caps ?limit= on the history endpoint.
const maxHistoryLimit = 500

// AlertSource provides the alert list.
type AlertSource interface {
	Active() []*alerts.Alert
	FiringCount() int
}

// HistoryReader reads stored reports for one workspace, newest first.
type HistoryReader interface {
	List(ctx context.Context, workspace string, limit int) ([]*types.Report, error)
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads workspace state from the report store and returns JSON responses.
type Handler struct {
	store   *store.Store
	alerts  AlertSource
	history HistoryReader // nil when history is disabled
	mux     *http.ServeMux
}

// New creates a Handler wired to the given store and registers all routes.
// hist may be nil, in which case the history endpoint answers 404.
func New(st *store.Store, al AlertSource, hist HistoryReader) http.Handler {
	h := &Handler{store: st, alerts: al, history: hist, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/workspaces", h.listWorkspaces)
	h.mux.HandleFunc("/api/v1/workspaces/", h.workspaceSubtree) // {id} and {id}/history
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: overall severity and counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{
		State:          types.SeverityGray,
		WorkspaceCount: len(entries),
	}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.FiringCount()
	}

	worst := types.SeverityGreen
	seen := false
	for _, e := range entries {
		overall := e.Report.Overall()
		switch overall {
		case types.SeverityGreen:
			resp.GreenCount++
		case types.SeverityYellow:
			resp.YellowCount++
		case types.SeverityRed:
			resp.RedCount++
		default:
			resp.GrayCount++
			continue
		}
		seen = true
		if overall.Rank() < worst.Rank() {
			worst = overall
		}
	}
	if seen {
		resp.State = worst
	}
	jsonResp(w, http.StatusOK, resp)
}

// listWorkspaces returns GET /api/v1/workspaces: all live workspaces.
func (h *Handler) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	out := make([]WorkspaceResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, WorkspaceOf(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// workspaceSubtree dispatches /api/v1/workspaces/{id}[/history].
func (h *Handler) workspaceSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/workspaces/"), "/")
	switch {
	case rest == "":
		h.listWorkspaces(w, r)
	case strings.HasSuffix(rest, "/history"):
		h.workspaceHistory(w, r, strings.TrimSuffix(rest, "/history"))
	case strings.Contains(rest, "/"):
		jsonErr(w, http.StatusNotFound, "not found")
	default:
		h.getWorkspace(w, rest)
	}
}

// getWorkspace returns GET /api/v1/workspaces/{id}: a single live workspace.
func (h *Handler) getWorkspace(w http.ResponseWriter, id string) {
	e, ok := h.store.GetLive(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "workspace not found")
		return
	}
	jsonResp(w, http.StatusOK, WorkspaceOf(e))
}

// workspaceHistory returns GET /api/v1/workspaces/{id}/history?limit=N.
func (h *Handler) workspaceHistory(w http.ResponseWriter, r *http.Request, id string) {
	if h.history == nil {
		jsonErr(w, http.StatusNotFound, "history disabled")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	reps, err := h.history.List(r.Context(), id, limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	resp := HistoryResponse{Workspace: id, Reports: make([]HistoryPoint, 0, len(reps))}
	for _, rep := range reps {
		resp.Reports = append(resp.Reports, HistoryPoint{
			ReportID:    rep.ID,
			GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339),
			Overall:     rep.Overall(),
			KPIs:        rep.KPIs,
			Severities:  rep.Severities,
		})
	}
	jsonResp(w, http.StatusOK, resp)
}

// listAlerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := []*alerts.Alert{}
	if h.alerts != nil {
		out = h.alerts.Active()
	}
	jsonResp(w, http.StatusOK, out)
}

// snapshot returns GET /api/v1/snapshot: full JSON dump of all live workspaces.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// BuildSnapshot assembles the snapshot payload. The WebSocket hub broadcasts
// the same structure.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	out := make([]WorkspaceResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, WorkspaceOf(e))
	}
	return SnapshotResponse{
		Workspaces:  out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// WorkspaceOf maps a store.Entry to its JSON representation.
func WorkspaceOf(e *store.Entry) WorkspaceResponse {
	rep := e.Report
	alertList := rep.Alerts
	if alertList == nil {
		alertList = []types.Alert{}
	}
	return WorkspaceResponse{
		Workspace:    rep.Workspace,
		ReportID:     rep.ID,
		GeneratedAt:  rep.GeneratedAt.UTC().Format(time.RFC3339),
		Overall:      rep.Overall(),
		KPIs:         rep.KPIs,
		Severities:   rep.Severities,
		Alerts:       alertList,
		Distribution: rep.Distribution,
		Board:        rep.Board,
		Datasets:     rep.Datasets,
		Dates:        rep.Dates,
		Diagnostics:  computeDiagnostics(rep),
		LastSeen:     e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
