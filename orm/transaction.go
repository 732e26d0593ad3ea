package orm

import (
	"context"
	"database/sql"
)

// txKey scopes an ambient transaction to one connection pool, so a DB and
// its Debug copies share scopes while unrelated pools never do.
type txKey struct {
	raw *sql.DB
}

// Transaction runs fn inside a transaction carried by the context passed to
// fn. Every query executed with that context (or one derived from it) runs
// on the transaction, however deep the call chain; no handle needs to be
// threaded through. Contexts created elsewhere never observe it.
//
// If fn returns nil the transaction is committed. If fn returns an error or
// panics the transaction is rolled back and the error (or panic) is
// propagated.
//
// Calling Transaction with a context that already carries a transaction
// for this DB reuses it: there are no nested transactions or savepoints,
// and only the outermost call commits or rolls back.
func (db *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{db.raw}).(*Tx); ok {
		return fn(ctx)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	err = fn(context.WithValue(ctx, txKey{db.raw}, tx))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Transact is Transaction for callbacks producing a value. The value is
// returned only when the transaction commits.
func Transact[T any](ctx context.Context, db *DB, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := db.Transaction(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// InTransaction reports whether ctx carries a transaction for db.
func (db *DB) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{db.raw}).(*Tx)
	return ok
}

// Conn returns the Querier statements issued with ctx must use: the ambient
// transaction when there is one, db otherwise.
func (db *DB) Conn(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{db.raw}).(*Tx); ok {
		return tx
	}
	return db
}
