package jobs

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	perr "firewatch/internal/platform/errors"
	"firewatch/internal/platform/store"
)

// Run statuses written to the ledger
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Run is one ledger row
type Run struct {
	ID         uuid.UUID
	Name       string
	Status     string
	Attempts   int
	Stats      any
	Err        string
	ErrCode    string
	StartedAt  time.Time
	FinishedAt time.Time
	ElapsedMS  int
}

// Ledger records job runs for operators
type Ledger interface {
	Start(ctx context.Context, r Run) error
	Finish(ctx context.Context, r Run) error
}

// NopLedger discards everything
type NopLedger struct{}

// Start implements Ledger
func (NopLedger) Start(context.Context, Run) error { return nil }

// Finish implements Ledger
func (NopLedger) Finish(context.Context, Run) error { return nil }

// PGLedger writes job_runs rows outside any job transaction
type PGLedger struct{ q store.RowQuerier }

// NewPGLedger returns a ledger over q
func NewPGLedger(q store.RowQuerier) *PGLedger { return &PGLedger{q: q} }

// Start inserts the running row
func (l *PGLedger) Start(ctx context.Context, r Run) error {
	_, err := l.q.Exec(ctx, `
		INSERT INTO job_runs (run_id, name, status, attempts, started_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (run_id) DO NOTHING`,
		r.ID, r.Name, StatusRunning, r.StartedAt.UTC(),
	)
	return perr.FromPostgres(err, "job_runs start")
}

// Finish stores the outcome and stats
func (l *PGLedger) Finish(ctx context.Context, r Run) error {
	var stats []byte
	if r.Stats != nil {
		b, err := json.Marshal(r.Stats)
		if err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "encode run stats")
		}
		stats = b
	}
	_, err := l.q.Exec(ctx, `
		UPDATE job_runs SET
			status = $2,
			attempts = $3,
			stats = $4::jsonb,
			error = NULLIF($5, ''),
			error_code = NULLIF($6, ''),
			finished_at = $7,
			elapsed_ms = $8
		WHERE run_id = $1`,
		r.ID, r.Status, r.Attempts, stats, r.Err, r.ErrCode, r.FinishedAt.UTC(), r.ElapsedMS,
	)
	return perr.FromPostgres(err, "job_runs finish")
}
