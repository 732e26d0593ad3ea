package orm

import (
	"github.com/mickamy/eagerorm/internal/naming"
)

// RelationKind tells how two models are linked.
type RelationKind int

const (
	// KindRoot marks the root node of a RelationMap; it is not a relation.
	KindRoot RelationKind = iota
	// KindBelongsTo: the source row holds a foreign key to one related row.
	KindBelongsTo
	// KindHasMany: many related rows hold a foreign key to the source row.
	KindHasMany
	// KindBelongsToMany: source and related rows are linked by a pivot table.
	KindBelongsToMany
)

func (k RelationKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindBelongsTo:
		return "belongsTo"
	case KindHasMany:
		return "hasMany"
	case KindBelongsToMany:
		return "belongsToMany"
	default:
		return "unknown"
	}
}

// Relation describes one edge between two models. It is a plain comparable
// value: relations built from the same parameters are equal and
// interchangeable.
//
// Key columns by kind:
//
//	BelongsTo:     source.ForeignKey      → related.ForeignKeyTarget
//	HasMany:       related.ForeignKey     → source.ForeignKeyTarget
//	BelongsToMany: Pivot.ThisKey → source.ThisKeyTarget,
//	               Pivot.ThatKey → related.ThatKeyTarget
type Relation struct {
	Kind    RelationKind
	Name    string
	Source  *Descriptor
	Related *Descriptor

	ForeignKey       string
	ForeignKeyTarget string

	Pivot         string
	ThisKey       string
	ThatKey       string
	ThisKeyTarget string
	ThatKeyTarget string
}

// RelationOption overrides a conventional key or table name.
type RelationOption func(*Relation)

// ForeignKey sets the foreign key column.
func ForeignKey(column string) RelationOption {
	return func(r *Relation) { r.ForeignKey = column }
}

// ForeignKeyTarget sets the column the foreign key references.
func ForeignKeyTarget(column string) RelationOption {
	return func(r *Relation) { r.ForeignKeyTarget = column }
}

// Pivot sets the pivot table of a many-to-many relation.
func Pivot(table string) RelationOption {
	return func(r *Relation) { r.Pivot = table }
}

// PivotKeys sets the pivot columns referencing the source and related rows.
func PivotKeys(this, that string) RelationOption {
	return func(r *Relation) {
		r.ThisKey = this
		r.ThatKey = that
	}
}

// PivotTargets sets the source and related columns the pivot keys reference.
func PivotTargets(this, that string) RelationOption {
	return func(r *Relation) {
		r.ThisKeyTarget = this
		r.ThatKeyTarget = that
	}
}

func newRelation(kind RelationKind, name string, source, related *Descriptor, opts []RelationOption) Relation {
	r := Relation{Kind: kind, Name: name, Source: source, Related: related}
	for _, opt := range opts {
		opt(&r)
	}

	switch kind {
	case KindBelongsTo:
		r.ForeignKey = orDefault(r.ForeignKey, naming.ForeignKey(related.table))
		r.ForeignKeyTarget = orDefault(r.ForeignKeyTarget, related.pk)
	case KindHasMany:
		r.ForeignKey = orDefault(r.ForeignKey, naming.ForeignKey(source.table))
		r.ForeignKeyTarget = orDefault(r.ForeignKeyTarget, source.pk)
	case KindBelongsToMany:
		r.Pivot = orDefault(r.Pivot, naming.PivotTable(source.table, related.table))
		r.ThisKey = orDefault(r.ThisKey, naming.ForeignKey(source.table))
		r.ThatKey = orDefault(r.ThatKey, naming.ForeignKey(related.table))
		r.ThisKeyTarget = orDefault(r.ThisKeyTarget, source.pk)
		r.ThatKeyTarget = orDefault(r.ThatKeyTarget, related.pk)
	}
	return r
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// For returns the query over the rows related to m. BelongsTo relations
// produce a single-row query. A nil key on m (a new model, a NULL foreign
// key) relates to nothing, so the query matches no rows.
func (r Relation) For(m *Model) *Query {
	switch r.Kind {
	case KindBelongsTo:
		value := m.Get(r.ForeignKey)
		if value == nil {
			return r.Related.Objects().Single().Query(matchNothing)
		}
		return r.Related.Objects().Single(Attrs{r.ForeignKeyTarget: value})
	case KindHasMany:
		value := m.Get(r.ForeignKeyTarget)
		if value == nil {
			return r.Related.Objects().Query(matchNothing)
		}
		return r.Related.Objects().Filter(Attrs{r.ForeignKey: value})
	case KindBelongsToMany:
		related := r.Related.table
		pivot := r.Pivot
		value := m.Get(r.ThisKeyTarget)
		if value == nil {
			return r.Related.Objects().Query(matchNothing)
		}
		return r.Related.Objects().Query(func(s *Statement) {
			s.InnerJoin(pivot, pivot+"."+r.ThatKey, related+"."+r.ThatKeyTarget).
				ClearSelect().
				Select(related+".*").
				Where(pivot+"."+r.ThisKey, "=", value)
		})
	default:
		return r.Related.Objects().fail(configErrorf(ErrUnknownRelation, "relation %q has no kind", r.Name))
	}
}

func matchNothing(s *Statement) { s.WhereRaw("1 = 0") }

// IsSingle reports whether the relation resolves to at most one row.
func (r Relation) IsSingle() bool { return r.Kind == KindBelongsTo }
