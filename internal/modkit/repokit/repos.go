// Package repokit binds domain repositories to a query surface, so one service
// runs unchanged over Postgres, a transaction or the in-memory store
package repokit

import "firewatch/internal/platform/store"

// Queryer is what a bound repo issues its statements against; a pool or an open tx
type Queryer = store.RowQuerier

// TxRunner opens the per-unit transactions services commit through
type TxRunner = store.TxRunner
