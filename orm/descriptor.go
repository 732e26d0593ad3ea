package orm

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mickamy/eagerorm/internal/naming"
	"github.com/mickamy/eagerorm/scope"
)

// ScopeFunc is a named scope: it receives the current query plus call
// arguments and returns a new query.
type ScopeFunc = scope.Func[*Query]

// Def declares a model.
type Def struct {
	// Name identifies the model in error messages. Defaults to the singular
	// of Table.
	Name string
	// Table is required.
	Table string
	// PrimaryKey defaults to "id".
	PrimaryKey string
	// Columns is the ordered list of persisted columns. When empty,
	// queries select "table.*".
	Columns []string
	// Scopes are invoked through Query.Scope.
	Scopes map[string]ScopeFunc
}

// Descriptor is the immutable metadata of a model bound to a DB: table,
// primary key, columns, named scopes and relations.
//
// Relations are declared right after Define, before the descriptor is
// first queried. Declaring a relation afterwards panics.
type Descriptor struct {
	db      *DB
	name    string
	table   string
	pk      string
	columns []string
	scopes  scope.Table[*Query]

	mu        sync.RWMutex
	relations map[string]Relation
	sealed    atomic.Bool
}

// Define registers a model on db.
func (db *DB) Define(def Def) *Descriptor {
	if def.Table == "" {
		panic("orm: Define requires a table name")
	}
	d := &Descriptor{
		db:        db,
		name:      def.Name,
		table:     def.Table,
		pk:        def.PrimaryKey,
		columns:   append([]string(nil), def.Columns...),
		scopes:    scope.NewTable(def.Scopes),
		relations: make(map[string]Relation),
	}
	if d.name == "" {
		d.name = naming.ModelName(def.Table)
	}
	if d.pk == "" {
		d.pk = "id"
	}
	return d
}

// DB returns the database the model is bound to.
func (d *Descriptor) DB() *DB { return d.db }

// Name returns the model name, e.g. "User" for the users table.
func (d *Descriptor) Name() string { return d.name }

// Table returns the table name.
func (d *Descriptor) Table() string { return d.table }

// PrimaryKey returns the primary key column.
func (d *Descriptor) PrimaryKey() string { return d.pk }

// Columns returns a copy of the persisted column list.
func (d *Descriptor) Columns() []string { return append([]string(nil), d.columns...) }

// Scopes returns the names of the registered scopes.
func (d *Descriptor) Scopes() []string { return d.scopes.Names() }

// Objects returns the query over every row of the table. It is the entry
// point of all reads and bulk writes.
func (d *Descriptor) Objects() *Query {
	d.sealed.Store(true)
	return newQuery(d)
}

// BelongsTo declares a relation where d's rows reference one row of related.
func (d *Descriptor) BelongsTo(name string, related *Descriptor, opts ...RelationOption) *Descriptor {
	return d.Relate(newRelation(KindBelongsTo, name, d, related, opts))
}

// HasMany declares a relation where many rows of related reference d's rows.
func (d *Descriptor) HasMany(name string, related *Descriptor, opts ...RelationOption) *Descriptor {
	return d.Relate(newRelation(KindHasMany, name, d, related, opts))
}

// BelongsToMany declares a many-to-many relation through a pivot table.
func (d *Descriptor) BelongsToMany(name string, related *Descriptor, opts ...RelationOption) *Descriptor {
	return d.Relate(newRelation(KindBelongsToMany, name, d, related, opts))
}

// Relate registers rel under rel.Name and returns d.
func (d *Descriptor) Relate(rel Relation) *Descriptor {
	if d.sealed.Load() {
		panic(fmt.Sprintf("orm: relation %q declared on %s after first use", rel.Name, d.name))
	}
	if rel.Source != d {
		panic(fmt.Sprintf("orm: relation %q does not originate from %s", rel.Name, d.name))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.relations[rel.Name]; dup {
		panic(fmt.Sprintf("orm: relation %q declared twice on %s", rel.Name, d.name))
	}
	d.relations[rel.Name] = rel
	return d
}

// Relation returns the relation registered under name.
func (d *Descriptor) Relation(name string) (Relation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rel, ok := d.relations[name]
	return rel, ok
}

// Relations returns the registered relation names in sorted order.
func (d *Descriptor) Relations() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.relations))
	for name := range d.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Descriptor) lookupRelation(name string) (Relation, error) {
	rel, ok := d.Relation(name)
	if !ok {
		return Relation{}, configErrorf(ErrUnknownRelation,
			"relation %q is not declared on model %q", name, d.name)
	}
	return rel, nil
}

// TableNamer can be implemented by model structs to override the
// auto-derived table name.
type TableNamer interface {
	TableName() string
}

// ResolveTableName returns the table name for type T.
// If T implements TableNamer (value or pointer receiver), that name is used;
// otherwise fallback is returned.
func ResolveTableName[T any](fallback string) string {
	var zero T
	if tn, ok := any(&zero).(TableNamer); ok {
		return tn.TableName()
	}
	return fallback
}
