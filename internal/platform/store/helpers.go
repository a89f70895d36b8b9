package store

import "context"

// ExecAffected runs a write and returns how many rows it touched
func ExecAffected(ctx context.Context, q RowQuerier, sql string, args ...any) (int64, error) {
	ct, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// Scalar reads a single value, e.g. SELECT count(*)
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (v T, err error) {
	err = q.QueryRow(ctx, sql, args...).Scan(&v)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Many maps every row through scan. Rows is a Row, so scan sees the current position.
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rs, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []T
	for rs.Next() {
		v, err := scan(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Column collects the first column, e.g. ids from UPDATE ... RETURNING id
func Column[T any](ctx context.Context, q RowQuerier, sql string, args ...any) ([]T, error) {
	return Many(ctx, q, func(r Row) (v T, err error) {
		err = r.Scan(&v)
		return v, err
	}, sql, args...)
}
