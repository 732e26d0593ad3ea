package orm

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sort"
	"strings"
)

// Query is a deferred, immutable query over one model's table.
//
// Builder methods (Filter, Limit, OrderBy, Including, Scope, ...) return a
// new Query; the receiver is never modified, so a Query can be shared and
// forked freely. A Query performs no I/O until a terminal method (All, One,
// Rows, Count, Pluck, Update, ...) is called.
//
// A Query holds no results. Every terminal call executes its statement
// again against the current state of the database: calling Count twice on
// the same value, with an insert in between, returns two different counts.
//
// Invalid descriptions (unknown filter operator, relation or scope) are
// detected when the builder method is called. The error sticks to the
// returned Query: Err reports it immediately, later builder calls keep it,
// and terminal methods return it without touching the database.
type Query struct {
	desc      *Descriptor
	applies   []func(*Statement)
	including []string
	relmap    *RelationMap
	single    bool
	err       error
}

func newQuery(d *Descriptor) *Query {
	return &Query{desc: d}
}

// clone returns a shallow copy with slices copied to avoid aliasing.
func (q *Query) clone() *Query {
	q2 := *q
	q2.applies = slices.Clone(q.applies)
	q2.including = append([]string(nil), q.including...)
	return &q2
}

func (q *Query) with(fn func(*Statement)) *Query {
	if q.err != nil {
		return q
	}
	q2 := q.clone()
	q2.applies = append(q2.applies, fn)
	return q2
}

func (q *Query) fail(err error) *Query {
	if q.err != nil {
		return q
	}
	q2 := q.clone()
	q2.err = err
	return q2
}

// Descriptor returns the queried model.
func (q *Query) Descriptor() *Descriptor { return q.desc }

// Err returns the first error recorded while building the query.
func (q *Query) Err() error { return q.err }

// IsSingle reports whether the query was narrowed with Single or First.
func (q *Query) IsSingle() bool { return q.single }

// Includes returns the requested eager-load paths, sorted.
func (q *Query) Includes() []string { return append([]string(nil), q.including...) }

// --- Builder methods ---

// Filter adds one predicate per attrs key. See Attrs for the key syntax.
func (q *Query) Filter(attrs Attrs) *Query {
	if q.err != nil {
		return q
	}
	fn, err := CompileFilter(q.desc.table, attrs)
	if err != nil {
		return q.fail(err)
	}
	return q.with(fn)
}

// Limit caps the number of rows returned.
func (q *Query) Limit(n int) *Query {
	return q.with(func(s *Statement) { s.Limit(n) })
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	return q.with(func(s *Statement) { s.Offset(n) })
}

// OrderBy sorts by column. direction is "asc" (default) or "desc", in any
// case.
func (q *Query) OrderBy(column string, direction ...string) *Query {
	dir := "asc"
	if len(direction) > 0 {
		dir = direction[0]
	}
	if !strings.EqualFold(dir, "asc") && !strings.EqualFold(dir, "desc") {
		return q.fail(configErrorf(nil, "invalid order direction %q", dir))
	}
	return q.with(func(s *Statement) { s.OrderBy(column, dir) })
}

// Query appends a raw callback operating directly on the Statement.
//
//	q.Query(func(s *orm.Statement) { s.WhereRaw("age % 2 = 0") })
func (q *Query) Query(fn func(*Statement)) *Query {
	if fn == nil {
		return q
	}
	return q.with(fn)
}

// Including requests eager loading of dotted relation paths, e.g.
// Including("things", "place.address"). Calls accumulate; duplicates and
// ordering do not matter.
func (q *Query) Including(paths ...string) *Query {
	if q.err != nil {
		return q
	}
	merged := normalizePaths(append(q.Includes(), paths...))
	relmap, err := CompileRelations(q.desc, merged...)
	if err != nil {
		return q.fail(err)
	}
	q2 := q.clone()
	q2.including = merged
	q2.relmap = relmap
	return q2
}

// Single narrows the query to exactly one row. One reports ErrNotFound for
// zero rows and ErrIntegrity for more than one.
func (q *Query) Single(attrs ...Attrs) *Query {
	for _, a := range attrs {
		q = q.Filter(a)
	}
	if q.err != nil || q.single {
		return q
	}
	q2 := q.clone()
	q2.single = true
	return q2
}

// First is Single with LIMIT 1: it never reports ErrIntegrity.
func (q *Query) First(attrs ...Attrs) *Query {
	return q.Single(attrs...).Limit(1)
}

// Scope applies the named scope registered on the model.
func (q *Query) Scope(name string, args ...any) *Query {
	if q.err != nil {
		return q
	}
	fn, ok := q.desc.scopes.Lookup(name)
	if !ok {
		return q.fail(configErrorf(ErrUnknownScope, "scope %q is not registered on model %q", name, q.desc.name))
	}
	return fn(q, args...)
}

// Statement builds a fresh Statement with every callback applied.
func (q *Query) Statement() *Statement {
	s := NewStatement(q.desc.table)
	for _, fn := range q.applies {
		fn(s)
	}
	return s
}

// ToSQL renders the SELECT the query would run.
func (q *Query) ToSQL() (string, []any) {
	return q.Statement().selectSQL(q.desc.db.d, q.desc.columns)
}

// --- Terminal methods ---

// All executes a SELECT and returns every matching row as a Model, with
// the requested relations attached.
func (q *Query) All(ctx context.Context) ([]*Model, error) {
	if q.err != nil {
		return nil, q.err
	}
	models, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := q.eagerLoad(ctx, models); err != nil {
		return nil, err
	}
	return models, nil
}

// One executes the query and returns its only row.
// Returns a *NotFoundError for zero rows and an *IntegrityError for more.
func (q *Query) One(ctx context.Context) (*Model, error) {
	if q.err != nil {
		return nil, q.err
	}
	models, err := q.fetch(ctx)
	if err != nil {
		return nil, err
	}
	switch len(models) {
	case 0:
		return nil, &NotFoundError{Table: q.desc.table}
	case 1:
	default:
		return nil, &IntegrityError{Table: q.desc.table, Rows: len(models)}
	}
	if err := q.eagerLoad(ctx, models); err != nil {
		return nil, err
	}
	return models[0], nil
}

// Rows streams matching rows one at a time. Iteration stops at the first
// error, which is yielded with a nil Model. Eager loading needs the whole
// batch, so a query with Including yields a configuration error.
//
//	for m, err := range users.Objects().Rows(ctx) { ... }
func (q *Query) Rows(ctx context.Context) iter.Seq2[*Model, error] {
	return func(yield func(*Model, error) bool) {
		if q.err != nil {
			yield(nil, q.err)
			return
		}
		if len(q.including) > 0 {
			yield(nil, configErrorf(nil, "relations %v cannot be eager-loaded while streaming", q.including))
			return
		}

		conn := q.conn(ctx)
		query, args := q.Statement().selectSQL(conn.dialect(), q.desc.columns)
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() { _ = rows.Close() }()

		cols, err := rows.Columns()
		if err != nil {
			yield(nil, err)
			return
		}
		for rows.Next() {
			row, err := scanRow(rows, cols)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(q.desc.materialize(row), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Get returns the row whose primary key equals id.
func (q *Query) Get(ctx context.Context, id any) (*Model, error) {
	return q.Filter(Attrs{q.desc.pk: id}).One(ctx)
}

// Create builds a new model from attrs and inserts it.
func (q *Query) Create(ctx context.Context, attrs Attrs) (*Model, error) {
	if q.err != nil {
		return nil, q.err
	}
	m := q.desc.New(attrs)
	if err := m.Save(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// GetOrCreate returns the single row matching attrs, creating it from
// defaults merged with attrs when there is none.
func (q *Query) GetOrCreate(ctx context.Context, attrs, defaults Attrs) (*Model, error) {
	m, err := q.Filter(attrs).One(ctx)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	merged := make(Attrs, len(attrs)+len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	return q.Create(ctx, merged)
}

// Update sets attrs on every matching row and returns the number of rows
// affected. Models already loaded are not touched.
func (q *Query) Update(ctx context.Context, attrs Attrs) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(attrs) == 0 {
		return 0, nil
	}
	columns, values := sortedAttrs(attrs)

	conn := q.conn(ctx)
	query, args := q.Statement().updateSQL(conn.dialect(), columns, values)
	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err //nolint:wrapcheck // pass through
	}
	return result.RowsAffected() //nolint:wrapcheck // pass through
}

// Remove deletes every matching row and returns the number of rows deleted.
func (q *Query) Remove(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	conn := q.conn(ctx)
	query, args := q.Statement().deleteSQL(conn.dialect())
	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err //nolint:wrapcheck // pass through
	}
	return result.RowsAffected() //nolint:wrapcheck // pass through
}

// --- execution ---

func (q *Query) conn(ctx context.Context) Querier {
	return q.desc.db.Conn(ctx)
}

func (q *Query) fetch(ctx context.Context) ([]*Model, error) {
	return queryModels(ctx, q.desc, q.Statement())
}

func (q *Query) eagerLoad(ctx context.Context, models []*Model) error {
	if q.relmap == nil || len(q.relmap.Children) == 0 {
		return nil
	}
	return eagerLoad(ctx, models, q.relmap)
}

func sortedAttrs(attrs Attrs) ([]string, []any) {
	columns := make([]string, 0, len(attrs))
	for k := range attrs {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = attrs[c]
	}
	return columns, values
}
