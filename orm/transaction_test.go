package orm_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/eagerorm/orm"
)

func countUsers(t *testing.T, ctx context.Context, f *fixture) int64 {
	t.Helper()

	n, err := f.users.Objects().Count(ctx)
	require.NoError(t, err)
	return n
}

func TestTransactionCommit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	err := f.db.Transaction(ctx, func(ctx context.Context) error {
		assert.True(t, f.db.InTransaction(ctx))
		_, err := f.users.Objects().Create(ctx, orm.Attrs{"name": "A"})
		return err
	})
	require.NoError(t, err)
	assert.False(t, f.db.InTransaction(ctx))
	assert.EqualValues(t, 1, countUsers(t, ctx, f))

	qs := f.log.Snapshot()
	require.Len(t, qs, 4)
	assert.Equal(t, "BEGIN", qs[0].SQL)
	assert.Equal(t, "COMMIT", qs[2].SQL)
}

func TestTransactionRollback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	errBoom := errors.New("boom")

	err := f.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := f.users.Objects().Create(ctx, orm.Attrs{"name": "A"}); err != nil {
			return err
		}
		// the write is visible inside the transaction
		assert.EqualValues(t, 1, countUsers(t, ctx, f))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.EqualValues(t, 0, countUsers(t, ctx, f))
	assert.Equal(t, 1, f.log.Count("ROLLBACK"))
}

func TestTransactionPanicRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	assert.PanicsWithValue(t, "boom", func() {
		_ = f.db.Transaction(ctx, func(ctx context.Context) error {
			_, _ = f.users.Objects().Create(ctx, orm.Attrs{"name": "A"})
			panic("boom")
		})
	})
	assert.EqualValues(t, 0, countUsers(t, ctx, f))
	assert.Equal(t, 1, f.log.Count("ROLLBACK"))
}

func TestTransactionNestingReusesOuter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	errInner := errors.New("inner")

	err := f.db.Transaction(ctx, func(ctx context.Context) error {
		_, err := f.users.Objects().Create(ctx, orm.Attrs{"name": "A"})
		require.NoError(t, err)

		err = f.db.Transaction(ctx, func(ctx context.Context) error {
			_, err := f.users.Objects().Create(ctx, orm.Attrs{"name": "B"})
			require.NoError(t, err)
			return errInner
		})
		require.ErrorIs(t, err, errInner)
		// the inner failure did not end the shared transaction
		assert.EqualValues(t, 2, countUsers(t, ctx, f))
		return nil
	})
	require.NoError(t, err)

	assert.EqualValues(t, 2, countUsers(t, ctx, f))
	assert.Equal(t, 1, f.log.Count("BEGIN"))
	assert.Equal(t, 1, f.log.Count("COMMIT"))
	assert.Zero(t, f.log.Count("ROLLBACK"))
}

func TestTransactionPropagatesThroughCalls(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t)
	ctx := t.Context()

	// a helper that knows nothing about transactions
	rename := func(ctx context.Context, id any, name string) error {
		u, err := f.users.Objects().Get(ctx, id)
		if err != nil {
			return err
		}
		u.Set("name", name)
		return u.Save(ctx)
	}

	err := f.db.Transaction(ctx, func(ctx context.Context) error {
		if err := rename(ctx, 1, "Z"); err != nil {
			return err
		}
		// an unrelated context does not see the uncommitted write
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.users.Objects().Get(context.Background(), 1)
			assert.NoError(t, err)
			if err == nil {
				assert.Equal(t, "A", got.Get("name"))
			}
		}()
		wg.Wait()
		return errors.New("undo")
	})
	require.Error(t, err)

	u, err := f.users.Objects().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", u.Get("name"))
}

func TestTransactionEagerLoadUsesTransaction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t)
	ctx := t.Context()

	err := f.db.Transaction(ctx, func(ctx context.Context) error {
		if _, err := f.things.Objects().Create(ctx, orm.Attrs{"name": "drill", "user_id": 3}); err != nil {
			return err
		}
		c, err := f.users.Objects().Filter(orm.Attrs{"name": "C"}).Including("things").One(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"drill"}, names(t, c.RelatedMany("things")))
		return nil
	})
	require.NoError(t, err)
}

func TestTransact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	u, err := orm.Transact(ctx, f.db, func(ctx context.Context) (*orm.Model, error) {
		return f.users.Objects().Create(ctx, orm.Attrs{"name": "A"})
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, u.ID())

	n, err := orm.Transact(ctx, f.db, func(ctx context.Context) (int64, error) {
		if _, err := f.users.Objects().Create(ctx, orm.Attrs{"name": "B"}); err != nil {
			return 0, err
		}
		return 42, errors.New("nope")
	})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 1, countUsers(t, ctx, f))
}

func TestDebugSharesTransactions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	debugLog := &orm.TestLogger{}
	debug := f.db.Debug(debugLog)

	err := f.db.Transaction(ctx, func(ctx context.Context) error {
		assert.True(t, debug.InTransaction(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, debugLog.Snapshot())
}
