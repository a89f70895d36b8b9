package domain

import "context"

// Source is one independent detection feed
type Source interface {
	ID() string
	Fetch(ctx context.Context, days int) (RawTable, error)
}

// FetcherPort is the public port of the fetch module
type FetcherPort interface {
	Fetch(ctx context.Context, days int) (Batch, error)
}
