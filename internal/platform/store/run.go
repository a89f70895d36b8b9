package store

import (
	"context"

	perr "firewatch/internal/platform/errors"
)

// RunTx labels ctx with op, runs fn inside tx and classifies driver failures.
// Errors already carrying a perr code pass through unchanged.
func RunTx(ctx context.Context, tx TxRunner, op string, fn func(ctx context.Context, q RowQuerier) error) error {
	ctx = WithOp(ctx, op)
	err := tx.Tx(ctx, func(q RowQuerier) error {
		return fn(ctx, q)
	})
	if err == nil {
		return nil
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.FromPostgres(err, op)
}
