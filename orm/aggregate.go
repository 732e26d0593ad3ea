package orm

import (
	"context"
	"errors"

	"github.com/spf13/cast"
)

// Count returns the number of matching rows, or of non-NULL values of
// column when one is given. An empty set counts 0.
func (q *Query) Count(ctx context.Context, column ...string) (int64, error) {
	col := "*"
	if len(column) > 0 {
		col = column[0]
	}
	v, err := q.aggregate(ctx, "COUNT", col)
	if err != nil || v == nil {
		return 0, err
	}
	return cast.ToInt64E(v) //nolint:wrapcheck // conversion error names the value
}

// Sum returns the sum of column over matching rows; 0 for an empty set.
func (q *Query) Sum(ctx context.Context, column string) (float64, error) {
	v, err := q.aggregate(ctx, "SUM", column)
	if err != nil || v == nil {
		return 0, err
	}
	return cast.ToFloat64E(v) //nolint:wrapcheck // conversion error names the value
}

// Avg returns the average of column over matching rows; nil for an empty
// set.
func (q *Query) Avg(ctx context.Context, column string) (*float64, error) {
	v, err := q.aggregate(ctx, "AVG", column)
	if err != nil || v == nil {
		return nil, err
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, err //nolint:wrapcheck // conversion error names the value
	}
	return &f, nil
}

// Min returns the smallest value of column as reported by the driver;
// nil for an empty set.
func (q *Query) Min(ctx context.Context, column string) (any, error) {
	return q.aggregate(ctx, "MIN", column)
}

// Max returns the largest value of column as reported by the driver;
// nil for an empty set.
func (q *Query) Max(ctx context.Context, column string) (any, error) {
	return q.aggregate(ctx, "MAX", column)
}

// Exists returns true if at least one row matches the current query conditions.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	count, err := q.Limit(1).Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Pluck returns the values of column for every matching row, in row order.
func (q *Query) Pluck(ctx context.Context, column string) ([]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	conn := q.conn(ctx)
	query, args := q.Statement().pluckSQL(conn.dialect(), column)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()

	var values []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		values = append(values, normalize(v))
	}
	return values, rows.Err() //nolint:wrapcheck // pass through
}

func (q *Query) aggregate(ctx context.Context, fn, column string) (any, error) {
	if q.err != nil {
		return nil, q.err
	}
	conn := q.conn(ctx)
	query, args := q.Statement().aggregateSQL(conn.dialect(), fn, column)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err //nolint:wrapcheck // pass through
		}
		return nil, errors.New("orm: " + fn + " returned no rows")
	}
	var v any
	if err := rows.Scan(&v); err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	return normalize(v), rows.Err() //nolint:wrapcheck // pass through
}
