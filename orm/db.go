package orm

import (
	"context"
	"database/sql"
)

// Querier is the common interface for DB and Tx.
// Queries resolve the Querier to use from the context at execution time.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	dialect() Dialect
}

// Logger is the interface for query logging.
// Transactions are reported as the pseudo statements BEGIN, COMMIT and
// ROLLBACK.
type Logger interface {
	Log(ctx context.Context, query string, args ...any)
}

// MultiLogger fans every entry out to all non-nil loggers.
func MultiLogger(loggers ...Logger) Logger {
	var ls multiLogger
	for _, l := range loggers {
		if l != nil {
			ls = append(ls, l)
		}
	}
	return ls
}

type multiLogger []Logger

func (ls multiLogger) Log(ctx context.Context, query string, args ...any) {
	for _, l := range ls {
		l.Log(ctx, query, args...)
	}
}

// Option configures a DB.
type Option func(*DB)

// WithLogger logs every statement executed through the DB.
func WithLogger(l Logger) Option {
	return func(db *DB) { db.logger = l }
}

// DB wraps *sql.DB with a Dialect and satisfies Querier.
// It is safe for concurrent use.
type DB struct {
	raw    *sql.DB
	d      Dialect
	logger Logger
}

// New wraps a *sql.DB with the given Dialect.
func New(db *sql.DB, d Dialect, opts ...Option) *DB {
	out := &DB{raw: db, d: d}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// Debug returns a new *DB that logs every query using the given Logger.
// The original DB is not modified. Both share the same pool and the same
// transaction scopes.
func (db *DB) Debug(l Logger) *DB {
	return &DB{raw: db.raw, d: db.d, logger: l}
}

// Dialect returns the DB's dialect.
func (db *DB) Dialect() Dialect { return db.d }

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db.log(ctx, query, args...)
	return db.raw.QueryContext(ctx, query, args...) //nolint:wrapcheck // thin wrapper
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.log(ctx, query, args...)
	return db.raw.ExecContext(ctx, query, args...) //nolint:wrapcheck // thin wrapper
}

// Begin starts a transaction. Most callers want Transaction, which also
// makes the transaction ambient for every query run with its context.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := db.raw.BeginTx(ctx, nil)
	if err != nil {
		return nil, err //nolint:wrapcheck // thin wrapper
	}
	db.log(ctx, "BEGIN")
	return &Tx{raw: tx, d: db.d, logger: db.logger}, nil
}

// Close closes the underlying *sql.DB.
func (db *DB) Close() error { return db.raw.Close() } //nolint:wrapcheck // thin wrapper

func (db *DB) dialect() Dialect { return db.d }

func (db *DB) log(ctx context.Context, query string, args ...any) {
	if db.logger != nil {
		db.logger.Log(ctx, query, args...)
	}
}

// Tx wraps *sql.Tx with a Dialect and satisfies Querier.
type Tx struct {
	raw    *sql.Tx
	d      Dialect
	logger Logger
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	tx.log(ctx, query, args...)
	return tx.raw.QueryContext(ctx, query, args...) //nolint:wrapcheck // thin wrapper
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx.log(ctx, query, args...)
	return tx.raw.ExecContext(ctx, query, args...) //nolint:wrapcheck // thin wrapper
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	tx.log(context.Background(), "COMMIT")
	return tx.raw.Commit() //nolint:wrapcheck // thin wrapper
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	tx.log(context.Background(), "ROLLBACK")
	return tx.raw.Rollback() //nolint:wrapcheck // thin wrapper
}

func (tx *Tx) dialect() Dialect { return tx.d }

func (tx *Tx) log(ctx context.Context, query string, args ...any) {
	if tx.logger != nil {
		tx.logger.Log(ctx, query, args...)
	}
}
