package orm

import (
	"context"
	"strings"
	"sync"
)

// TestLogger records every statement passed to Log.
// Exported for use in orm_test package.
type TestLogger struct {
	mu      sync.Mutex
	Queries []TestQuery
}

// TestQuery holds a captured query string and its args.
type TestQuery struct {
	SQL  string
	Args []any
}

func (l *TestLogger) Log(_ context.Context, query string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Queries = append(l.Queries, TestQuery{query, args})
}

var _ Logger = (*TestLogger)(nil)

// Reset forgets every recorded statement.
func (l *TestLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Queries = nil
}

// Snapshot returns a copy of the recorded statements.
func (l *TestLogger) Snapshot() []TestQuery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TestQuery(nil), l.Queries...)
}

// Count returns how many recorded statements start with prefix.
func (l *TestLogger) Count(prefix string) int {
	n := 0
	for _, q := range l.Snapshot() {
		if strings.HasPrefix(q.SQL, prefix) {
			n++
		}
	}
	return n
}

// LastQuery returns the most recently captured query, or panics if empty.
func (l *TestLogger) LastQuery() TestQuery {
	qs := l.Snapshot()
	return qs[len(qs)-1]
}

func SelectSQL(s *Statement, d Dialect, columns ...string) (string, []any) {
	return s.selectSQL(d, columns)
}

func AggregateSQL(s *Statement, d Dialect, fn, column string) (string, []any) {
	return s.aggregateSQL(d, fn, column)
}

func PluckSQL(s *Statement, d Dialect, column string) (string, []any) {
	return s.pluckSQL(d, column)
}

func InsertSQL(s *Statement, d Dialect, columns ...string) string {
	return s.insertSQL(d, columns)
}

func UpdateSQL(s *Statement, d Dialect, columns []string, values []any) (string, []any) {
	return s.updateSQL(d, columns, values)
}

func DeleteSQL(s *Statement, d Dialect) (string, []any) {
	return s.deleteSQL(d)
}

var (
	QuoteRef            = quoteRef
	RewritePlaceholders = rewritePlaceholders
)
