package repo

import (
	"context"
	"time"

	"firewatch/internal/core/fire"
	"firewatch/internal/platform/store"
	"firewatch/migrations"
)

const archiveTable = "incident_archive"

// CHArchiver writes one summary row per purged incident to ClickHouse
type CHArchiver struct {
	ch  store.Clickhouse
	now func() time.Time
}

// NewCHArchiver returns an archiver over ch
func NewCHArchiver(ch store.Clickhouse) *CHArchiver {
	if ch == nil {
		panic("lifecycle.CHArchiver requires a clickhouse seam")
	}
	return &CHArchiver{ch: ch, now: time.Now}
}

// Ensure creates the archive table if missing
func (a *CHArchiver) Ensure(ctx context.Context) error {
	return a.ch.Exec(ctx, migrations.ClickhouseArchive())
}

// Archive inserts summaries; ReplacingMergeTree collapses re-archived ids
func (a *CHArchiver) Archive(ctx context.Context, ins []fire.Incident) error {
	if len(ins) == 0 {
		return nil
	}
	at := a.now().UTC()
	rows := make([][]any, 0, len(ins))
	for _, in := range ins {
		var ended time.Time
		if in.EndedAt != nil {
			ended = in.EndedAt.UTC()
		}
		rows = append(rows, []any{
			in.ID,
			in.MinLat, in.MaxLat, in.MinLon, in.MaxLon,
			in.CenterLat, in.CenterLon,
			int32(in.FireCount),
			in.FirstDetectedAt.UTC(), in.LastDetectedAt.UTC(), ended,
			in.MinFRP, in.MaxFRP, in.AvgFRP, in.TotalFRP,
			at,
		})
	}
	return a.ch.Insert(ctx, archiveTable, rows)
}
