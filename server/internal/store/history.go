package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trainingpulse/trainingpulse/pkg/types"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	workspace    TEXT NOT NULL,
	generated_at INTEGER NOT NULL,
	received_at  INTEGER NOT NULL,
	overall      TEXT NOT NULL,
	body         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_workspace ON reports (workspace, received_at DESC);
`

// DefaultHistoryLimit is used when a caller asks for a non-positive limit.
const DefaultHistoryLimit = 50

// History persists every received report in SQLite so KPI trends survive
// restarts. History is safe for concurrent use.
type History struct {
	db        *sql.DB
	retention time.Duration
}

// OpenHistory opens (creating if needed) the SQLite database at path.
func OpenHistory(path string, retention time.Duration) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open history %q: %w", path, err)
	}
	// A single connection serialises writers; SQLite locks the file anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init history schema: %w", err)
	}
	return &History{db: db, retention: retention}, nil
}

// Close releases the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Append records rep. A report with an ID already present is ignored, so
// agent retries do not duplicate rows.
func (h *History) Append(ctx context.Context, rep *types.Report, receivedAt time.Time) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("store: marshal report: %w", err)
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reports (id, workspace, generated_at, received_at, overall, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.Workspace, rep.GeneratedAt.UnixMilli(), receivedAt.UnixMilli(),
		string(rep.Overall()), string(body),
	)
	if err != nil {
		return fmt.Errorf("store: append report %s: %w", rep.ID, err)
	}
	return nil
}

// List returns up to limit reports for workspace, newest first.
func (h *History) List(ctx context.Context, workspace string, limit int) ([]*types.Report, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT body FROM reports WHERE workspace = ? ORDER BY received_at DESC, generated_at DESC LIMIT ?`,
		workspace, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Report, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		var rep types.Report
		if err := json.Unmarshal([]byte(body), &rep); err != nil {
			return nil, fmt.Errorf("store: decode history row: %w", err)
		}
		out = append(out, &rep)
	}
	return out, rows.Err()
}

// Prune deletes rows received before cutoff and returns how many were removed.
func (h *History) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM reports WHERE received_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("store: prune history: %w", err)
	}
	return res.RowsAffected()
}

// Run prunes rows older than the retention once an hour until ctx is cancelled.
func (h *History) Run(ctx context.Context) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := h.Prune(ctx, now.Add(-h.retention))
			if err != nil {
				slog.Warn("store: history prune failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("store: pruned history", "count", n)
			}
		}
	}
}
