package orm

import (
	"context"

	"github.com/spf13/cast"
)

// pivotAlias prefixes the pivot key selected alongside belongs-to-many rows.
const pivotAlias = "_pivot_"

// eagerLoad attaches every child relation of node to parents, then recurses
// into the loaded rows. Each relation edge costs exactly one statement for
// the whole batch of parents, whatever its size; an edge whose parents
// carry no key costs none.
func eagerLoad(ctx context.Context, parents []*Model, node *RelationMap) error {
	if len(parents) == 0 {
		return nil
	}
	for _, name := range node.ChildNames() {
		child := node.Children[name]

		var (
			loaded []*Model
			err    error
		)
		switch child.Kind {
		case KindBelongsTo:
			loaded, err = loadBelongsTo(ctx, parents, child.Relation)
		case KindHasMany:
			loaded, err = loadHasMany(ctx, parents, child.Relation)
		case KindBelongsToMany:
			loaded, err = loadBelongsToMany(ctx, parents, child.Relation)
		default:
			err = configErrorf(ErrUnknownRelation, "relation %q has unsupported kind %s", name, child.Kind)
		}
		if err != nil {
			return err
		}

		if len(child.Children) > 0 {
			if err := eagerLoad(ctx, loaded, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadBelongsTo(ctx context.Context, parents []*Model, rel Relation) ([]*Model, error) {
	keys := collectKeys(parents, rel.ForeignKey)
	var related []*Model
	if len(keys) > 0 {
		s := NewStatement(rel.Related.table).
			WhereIn(qualify(rel.Related.table, rel.ForeignKeyTarget), keys)
		var err error
		related, err = queryModels(ctx, rel.Related, s)
		if err != nil {
			return nil, err
		}
	}

	byKey := make(map[string]*Model, len(related))
	for _, m := range related {
		if k, ok := keyOf(m.Get(rel.ForeignKeyTarget)); ok {
			byKey[k] = m
		}
	}
	for _, p := range parents {
		var one *Model
		if k, ok := keyOf(p.Get(rel.ForeignKey)); ok {
			one = byKey[k]
		}
		p.SetRelated(rel.Name, one)
	}
	return related, nil
}

func loadHasMany(ctx context.Context, parents []*Model, rel Relation) ([]*Model, error) {
	keys := collectKeys(parents, rel.ForeignKeyTarget)
	var related []*Model
	if len(keys) > 0 {
		s := NewStatement(rel.Related.table).
			WhereIn(qualify(rel.Related.table, rel.ForeignKey), keys)
		var err error
		related, err = queryModels(ctx, rel.Related, s)
		if err != nil {
			return nil, err
		}
	}

	groups := make(map[string][]*Model)
	for _, m := range related {
		if k, ok := keyOf(m.Get(rel.ForeignKey)); ok {
			groups[k] = append(groups[k], m)
		}
	}
	attachMany(parents, rel.Name, rel.ForeignKeyTarget, groups)
	return related, nil
}

func loadBelongsToMany(ctx context.Context, parents []*Model, rel Relation) ([]*Model, error) {
	keys := collectKeys(parents, rel.ThisKeyTarget)
	alias := pivotAlias + rel.ThisKey
	var related []*Model
	if len(keys) > 0 {
		table := rel.Related.table
		s := NewStatement(table).
			InnerJoin(rel.Pivot, rel.Pivot+"."+rel.ThatKey, table+"."+rel.ThatKeyTarget).
			Select(table+".*").
			SelectAs(rel.Pivot+"."+rel.ThisKey, alias).
			WhereIn(rel.Pivot+"."+rel.ThisKey, keys)
		var err error
		related, err = queryModels(ctx, rel.Related, s)
		if err != nil {
			return nil, err
		}
	}

	groups := make(map[string][]*Model)
	for _, m := range related {
		k, ok := keyOf(m.Get(alias))
		delete(m.attrs, alias)
		delete(m.stored, alias)
		if ok {
			groups[k] = append(groups[k], m)
		}
	}
	attachMany(parents, rel.Name, rel.ThisKeyTarget, groups)
	return related, nil
}

// attachMany gives every parent its group, or an empty non-nil slice.
func attachMany(parents []*Model, name, key string, groups map[string][]*Model) {
	for _, p := range parents {
		many := []*Model{}
		if k, ok := keyOf(p.Get(key)); ok && groups[k] != nil {
			many = groups[k]
		}
		p.SetRelated(name, many)
	}
}

// collectKeys returns the distinct non-nil values of column across models,
// in first-seen order.
func collectKeys(models []*Model, column string) []any {
	seen := make(map[string]struct{}, len(models))
	var keys []any
	for _, m := range models {
		v := m.Get(column)
		k, ok := keyOf(v)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// keyOf normalizes a key value so that 7, int64(7) and "7" partition
// together. Drivers disagree on the Go type of integer columns.
func keyOf(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}

// queryModels runs a SELECT built from s and materializes rows of d.
func queryModels(ctx context.Context, d *Descriptor, s *Statement) ([]*Model, error) {
	conn := d.db.Conn(ctx)
	query, args := s.selectSQL(conn.dialect(), d.columns)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	var result []*Model
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		result = append(result, d.materialize(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	return result, nil
}
