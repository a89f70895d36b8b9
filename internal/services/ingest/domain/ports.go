package domain

import (
	"context"

	"firewatch/internal/core/fire"
	fetchdom "firewatch/internal/services/fetch/domain"
)

// IngesterPort is the public port of the ingest module
type IngesterPort interface {
	Ingest(ctx context.Context, batch fetchdom.Batch) (Report, error)
}

// Repo is the detection write surface
type Repo interface {
	// UpsertDetections inserts rows whose identity key is new and leaves
	// existing rows untouched. Returns how many rows were actually inserted
	UpsertDetections(ctx context.Context, ds []fire.Detection) (int, error)
}
