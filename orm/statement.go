package orm

import (
	"fmt"
	"strings"
)

// Statement accumulates the clauses of a single SQL statement against one
// table. Unlike Query it is mutable: every method modifies the receiver and
// returns it for chaining. Query callbacks receive a fresh Statement each
// time a query executes, so mutations never leak between executions.
type Statement struct {
	table    string
	wheres   []predicate
	joins    []join
	selects  []selection
	orderBys []ordering
	limit    *int
	offset   *int
}

type predicate struct {
	column string
	op     string
	args   []any
	in     bool
	raw    string
}

type join struct {
	table string
	left  string
	right string
}

type selection struct {
	ref   string
	alias string
}

type ordering struct {
	column string
	dir    string
}

// NewStatement starts a statement against table.
func NewStatement(table string) *Statement {
	return &Statement{table: table}
}

// Table returns the statement's base table.
func (s *Statement) Table() string { return s.table }

// Where adds "column op ?". A nil value with "=" or "!=" renders
// IS NULL / IS NOT NULL.
func (s *Statement) Where(column, op string, value any) *Statement {
	s.wheres = append(s.wheres, predicate{column: column, op: op, args: []any{value}})
	return s
}

// WhereIn adds "column IN (?, ...)". An empty values slice matches nothing.
func (s *Statement) WhereIn(column string, values []any) *Statement {
	s.wheres = append(s.wheres, predicate{column: column, in: true, args: append([]any(nil), values...)})
	return s
}

// WhereRaw adds a verbatim clause with ? placeholders.
//
//	s.WhereRaw("age > ? OR vip = ?", 18, true)
func (s *Statement) WhereRaw(clause string, args ...any) *Statement {
	s.wheres = append(s.wheres, predicate{raw: "(" + clause + ")", args: args})
	return s
}

// InnerJoin adds "INNER JOIN table ON left = right".
func (s *Statement) InnerJoin(table, left, right string) *Statement {
	s.joins = append(s.joins, join{table: table, left: left, right: right})
	return s
}

// Select appends column references to the select list. "table.*" is allowed.
func (s *Statement) Select(refs ...string) *Statement {
	for _, r := range refs {
		s.selects = append(s.selects, selection{ref: r})
	}
	return s
}

// SelectAs appends "ref AS alias" to the select list.
func (s *Statement) SelectAs(ref, alias string) *Statement {
	s.selects = append(s.selects, selection{ref: ref, alias: alias})
	return s
}

// ClearSelect drops any explicit select list so the default columns apply.
func (s *Statement) ClearSelect() *Statement {
	s.selects = nil
	return s
}

// Limit sets the LIMIT.
func (s *Statement) Limit(n int) *Statement {
	s.limit = &n
	return s
}

// Offset sets the OFFSET.
func (s *Statement) Offset(n int) *Statement {
	s.offset = &n
	return s
}

// OrderBy appends an ORDER BY term. dir is "asc" or "desc" in any case;
// anything else sorts ascending.
func (s *Statement) OrderBy(column, dir string) *Statement {
	d := "ASC"
	if strings.EqualFold(dir, "desc") {
		d = "DESC"
	}
	s.orderBys = append(s.orderBys, ordering{column: column, dir: d})
	return s
}

// Clone returns a deep copy of the clause lists.
func (s *Statement) Clone() *Statement {
	s2 := *s
	s2.wheres = append([]predicate(nil), s.wheres...)
	s2.joins = append([]join(nil), s.joins...)
	s2.selects = append([]selection(nil), s.selects...)
	s2.orderBys = append([]ordering(nil), s.orderBys...)
	return &s2
}

// --- SQL rendering ---

// selectSQL renders a SELECT. columns is the default select list used when
// no explicit selection was made; an empty list selects "table.*".
func (s *Statement) selectSQL(d Dialect, columns []string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(s.selectList(d, columns))
	args := s.writeFrom(&b, d)
	s.writeOrder(&b, d)
	s.writeLimit(&b)
	return rewritePlaceholders(d, b.String()), args
}

// aggregateSQL renders "SELECT fn(column) ...". An empty column or "*"
// aggregates over rows. With a LIMIT or OFFSET the rows are selected in a
// derived table first, so the bounds apply to the aggregated rows.
func (s *Statement) aggregateSQL(d Dialect, fn, column string) (string, []any) {
	target := "*"
	if column != "" && column != "*" {
		target = quoteRef(d, column)
	}
	var b strings.Builder
	if s.limit == nil && s.offset == nil {
		fmt.Fprintf(&b, "SELECT %s(%s)", fn, target)
		args := s.writeFrom(&b, d)
		return rewritePlaceholders(d, b.String()), args
	}

	inner, outer := "1", "*"
	if target != "*" {
		outer = d.QuoteIdent(aggregateAlias)
		inner = target + " AS " + outer
	}
	fmt.Fprintf(&b, "SELECT %s(%s) FROM (SELECT %s", fn, outer, inner)
	args := s.writeFrom(&b, d)
	s.writeOrder(&b, d)
	s.writeLimit(&b)
	b.WriteString(") sub")
	return rewritePlaceholders(d, b.String()), args
}

const aggregateAlias = "_value"

// pluckSQL renders a single-column SELECT preserving order, limit and offset.
func (s *Statement) pluckSQL(d Dialect, column string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(quoteRef(d, column))
	args := s.writeFrom(&b, d)
	s.writeOrder(&b, d)
	s.writeLimit(&b)
	return rewritePlaceholders(d, b.String()), args
}

func (s *Statement) insertSQL(d Dialect, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(s.table),
		quoteColumns(d, columns),
		strings.Join(placeholders, ", "),
	)
	return rewritePlaceholders(d, query)
}

// updateSQL renders an UPDATE of columns restricted by the WHERE clauses.
// values are bound before the WHERE arguments.
func (s *Statement) updateSQL(d Dialect, columns []string, values []any) (string, []any) {
	sets := make([]string, len(columns))
	for i, col := range columns {
		sets[i] = d.QuoteIdent(col) + " = ?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", d.QuoteIdent(s.table), strings.Join(sets, ", "))
	args := append([]any(nil), values...)
	args = append(args, s.writeWhere(&b, d)...)
	return rewritePlaceholders(d, b.String()), args
}

func (s *Statement) deleteSQL(d Dialect) (string, []any) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(d.QuoteIdent(s.table))
	args := s.writeWhere(&b, d)
	return rewritePlaceholders(d, b.String()), args
}

func (s *Statement) selectList(d Dialect, columns []string) string {
	if len(s.selects) > 0 {
		parts := make([]string, len(s.selects))
		for i, sel := range s.selects {
			parts[i] = quoteRef(d, sel.ref)
			if sel.alias != "" {
				parts[i] += " AS " + d.QuoteIdent(sel.alias)
			}
		}
		return strings.Join(parts, ", ")
	}
	if len(columns) == 0 {
		return quoteRef(d, s.table+".*")
	}
	if len(s.joins) == 0 {
		return quoteColumns(d, columns)
	}
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = quoteRef(d, s.table+"."+c)
	}
	return strings.Join(qualified, ", ")
}

func (s *Statement) writeFrom(b *strings.Builder, d Dialect) []any {
	b.WriteString(" FROM ")
	b.WriteString(d.QuoteIdent(s.table))
	for _, j := range s.joins {
		fmt.Fprintf(b, " INNER JOIN %s ON %s = %s",
			d.QuoteIdent(j.table), quoteRef(d, j.left), quoteRef(d, j.right))
	}
	return s.writeWhere(b, d)
}

func (s *Statement) writeWhere(b *strings.Builder, d Dialect) []any {
	if len(s.wheres) == 0 {
		return nil
	}

	var args []any
	b.WriteString(" WHERE ")
	for i, w := range s.wheres {
		if i > 0 {
			b.WriteString(" AND ")
		}
		clause, wargs := w.render(d)
		b.WriteString(clause)
		args = append(args, wargs...)
	}
	return args
}

func (s *Statement) writeOrder(b *strings.Builder, d Dialect) {
	if len(s.orderBys) == 0 {
		return
	}
	terms := make([]string, len(s.orderBys))
	for i, o := range s.orderBys {
		terms[i] = quoteRef(d, o.column) + " " + o.dir
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(terms, ", "))
}

func (s *Statement) writeLimit(b *strings.Builder) {
	if s.limit != nil {
		fmt.Fprintf(b, " LIMIT %d", *s.limit)
	}
	if s.offset != nil {
		fmt.Fprintf(b, " OFFSET %d", *s.offset)
	}
}

func (p predicate) render(d Dialect) (string, []any) {
	switch {
	case p.raw != "":
		return p.raw, p.args
	case p.in:
		if len(p.args) == 0 {
			return "1 = 0", nil
		}
		return quoteRef(d, p.column) + " IN (" + repeatJoin("?", len(p.args)) + ")", p.args
	case p.args[0] == nil && p.op == "=":
		return quoteRef(d, p.column) + " IS NULL", nil
	case p.args[0] == nil && p.op == "!=":
		return quoteRef(d, p.column) + " IS NOT NULL", nil
	default:
		return quoteRef(d, p.column) + " " + p.op + " ?", p.args
	}
}

// quoteColumns joins column names with dialect-aware quoting.
func quoteColumns(d Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteRef(d, c)
	}
	return strings.Join(quoted, ", ")
}

func repeatJoin(s string, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}
