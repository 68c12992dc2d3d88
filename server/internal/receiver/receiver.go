package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trainingpulse/trainingpulse/pkg/types"
	"github.com/trainingpulse/trainingpulse/server/internal/store"
)

// maxBodyBytes caps a single report upload.
const maxBodyBytes = 8 << 20

// Evaluator receives every accepted report for alerting.
type Evaluator interface {
	Evaluate(rep *types.Report)
}

// Recorder persists accepted reports.
type Recorder interface {
	Append(ctx context.Context, rep *types.Report, receivedAt time.Time) error
}

// Publisher is told about every stored entry, e.g. to push it to live
// dashboard clients.
type Publisher interface {
	Publish(e *store.Entry)
}

// Receiver is the HTTP handler for report uploads.
type Receiver struct {
	store    *store.Store
	alerts   Evaluator
	history  Recorder // nil when history is disabled
	pub      Publisher
	validate *validator.Validate
}

// New creates a Receiver that writes accepted reports to st and passes them
// to ev and pub. Any of ev, hist and pub may be nil.
func New(st *store.Store, ev Evaluator, hist Recorder, pub Publisher) *Receiver {
	return &Receiver{
		store:    st,
		alerts:   ev,
		history:  hist,
		pub:      pub,
		validate: validator.New(),
	}
}

type ackResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var rep types.Report
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rep); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode report: %v", err)})
		return
	}
	if err := rc.validate.Struct(&rep); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid report: %v", err)})
		return
	}

	entry := rc.store.Put(&rep)
	if rc.alerts != nil {
		rc.alerts.Evaluate(&rep)
	}
	if rc.pub != nil {
		rc.pub.Publish(entry)
	}
	if rc.history != nil {
		if err := rc.history.Append(r.Context(), &rep, entry.UpdatedAt); err != nil {
			// The live view is already updated; only the trend loses a point.
			slog.Warn("receiver: history append failed", "workspace", rep.Workspace, "err", err)
		}
	}

	slog.Debug("receiver: report stored",
		"workspace", rep.Workspace,
		"report_id", rep.ID,
		"overall", rep.Overall(),
		"alerts", len(rep.Alerts),
	)
	writeJSON(w, http.StatusAccepted, ackResponse{OK: true, ID: rep.ID})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
