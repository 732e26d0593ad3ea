package orm

import (
	"context"
	"errors"
	"maps"
	"reflect"

	"github.com/goccy/go-json"
)

// Model is one row of a model's table.
//
// It keeps the current attributes, a snapshot of the attributes as last
// loaded or saved (used to find dirty attributes), and related data
// attached by eager loading. Related data is a non-owning attachment:
// replacing or dropping it never touches the database.
//
// A Model is not safe for concurrent mutation.
type Model struct {
	desc    *Descriptor
	attrs   map[string]any
	stored  map[string]any
	related map[string]any
}

// New builds an unsaved model. attrs is copied.
func (d *Descriptor) New(attrs Attrs) *Model {
	return &Model{
		desc:   d,
		attrs:  maps.Clone(map[string]any(attrs)),
		stored: map[string]any{},
	}
}

func (d *Descriptor) materialize(row Row) *Model {
	return &Model{
		desc:   d,
		attrs:  maps.Clone(map[string]any(row)),
		stored: maps.Clone(map[string]any(row)),
	}
}

// Descriptor returns the model's descriptor.
func (m *Model) Descriptor() *Descriptor { return m.desc }

// Get returns the attribute name, or nil when unset.
func (m *Model) Get(name string) any { return m.attrs[name] }

// Set sets one attribute.
func (m *Model) Set(name string, value any) {
	if m.attrs == nil {
		m.attrs = map[string]any{}
	}
	m.attrs[name] = value
}

// SetAll merges attrs into the attributes.
func (m *Model) SetAll(attrs Attrs) {
	for k, v := range attrs {
		m.Set(k, v)
	}
}

// ID returns the primary key value.
func (m *Model) ID() any { return m.attrs[m.desc.pk] }

// IsNew reports whether the model has no primary key yet.
func (m *Model) IsNew() bool { return m.ID() == nil }

// Attributes returns a copy of the current attributes.
func (m *Model) Attributes() Attrs { return maps.Clone(Attrs(m.attrs)) }

// Dirty returns the non-key attributes whose value differs from the last
// loaded or saved snapshot.
func (m *Model) Dirty() Attrs {
	dirty := Attrs{}
	for k, v := range m.attrs {
		if k == m.desc.pk {
			continue
		}
		old, ok := m.stored[k]
		if !ok || !reflect.DeepEqual(old, v) {
			dirty[k] = v
		}
	}
	return dirty
}

// Save inserts a new model or updates the dirty attributes of a stored
// one. Saving a model with no dirty attributes issues no statement.
func (m *Model) Save(ctx context.Context) error {
	if m.IsNew() {
		return m.insert(ctx)
	}
	return m.update(ctx)
}

func (m *Model) insert(ctx context.Context) error {
	attrs := Attrs{}
	for k, v := range m.attrs {
		if k != m.desc.pk {
			attrs[k] = v
		}
	}
	columns, values := sortedAttrs(attrs)

	conn := m.desc.db.Conn(ctx)
	d := conn.dialect()
	query := NewStatement(m.desc.table).insertSQL(d, columns)

	if d.UseReturning() {
		query += d.ReturningClause(m.desc.pk)
		rows, err := conn.QueryContext(ctx, query, values...)
		if err != nil {
			return err //nolint:wrapcheck // pass through
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err //nolint:wrapcheck // pass through
			}
			return errors.New("orm: INSERT RETURNING returned no rows")
		}
		var id any
		if err := rows.Scan(&id); err != nil {
			return err //nolint:wrapcheck // pass through
		}
		if err := rows.Err(); err != nil {
			return err //nolint:wrapcheck // pass through
		}
		m.attrs[m.desc.pk] = normalize(id)
	} else {
		result, err := conn.ExecContext(ctx, query, values...)
		if err != nil {
			return err //nolint:wrapcheck // pass through
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err //nolint:wrapcheck // pass through
		}
		m.Set(m.desc.pk, id)
	}

	m.stored = maps.Clone(m.attrs)
	return nil
}

func (m *Model) update(ctx context.Context) error {
	dirty := m.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	columns, values := sortedAttrs(dirty)

	conn := m.desc.db.Conn(ctx)
	query, args := NewStatement(m.desc.table).
		Where(m.desc.pk, "=", m.ID()).
		updateSQL(conn.dialect(), columns, values)
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return err //nolint:wrapcheck // pass through
	}
	m.stored = maps.Clone(m.attrs)
	return nil
}

// Remove deletes the model's row. Removing a new model is an ErrNotFound.
func (m *Model) Remove(ctx context.Context) error {
	if m.IsNew() {
		return &NotFoundError{Table: m.desc.table, Reason: "cannot remove a new entity"}
	}
	conn := m.desc.db.Conn(ctx)
	query, args := NewStatement(m.desc.table).
		Where(m.desc.pk, "=", m.ID()).
		deleteSQL(conn.dialect())
	_, err := conn.ExecContext(ctx, query, args...)
	return err //nolint:wrapcheck // pass through
}

// Refresh reloads the attributes from the database, discarding unsaved
// changes. Related data is kept.
func (m *Model) Refresh(ctx context.Context) error {
	if m.IsNew() {
		return &NotFoundError{Table: m.desc.table, Reason: "cannot refresh a new entity"}
	}
	fresh, err := m.desc.Objects().Get(ctx, m.ID())
	if err != nil {
		return err
	}
	m.attrs = fresh.attrs
	m.stored = fresh.stored
	return nil
}

// --- relations ---

// Relation returns the query over the rows related to m through the named
// relation.
func (m *Model) Relation(name string) (*Query, error) {
	rel, err := m.desc.lookupRelation(name)
	if err != nil {
		return nil, err
	}
	return rel.For(m), nil
}

// Load eager-loads relation paths into m, as Including does for queries.
func (m *Model) Load(ctx context.Context, paths ...string) error {
	relmap, err := CompileRelations(m.desc, paths...)
	if err != nil {
		return err
	}
	return eagerLoad(ctx, []*Model{m}, relmap)
}

// Related returns the data attached under name: a *Model (possibly nil)
// for belongs-to relations, a []*Model for the others, nil when nothing
// was loaded.
func (m *Model) Related(name string) any { return m.related[name] }

// RelatedOne returns the belongs-to data attached under name.
func (m *Model) RelatedOne(name string) *Model {
	one, _ := m.related[name].(*Model)
	return one
}

// RelatedMany returns the to-many data attached under name.
func (m *Model) RelatedMany(name string) []*Model {
	many, _ := m.related[name].([]*Model)
	return many
}

// HasRelated reports whether data was attached under name.
func (m *Model) HasRelated(name string) bool {
	_, ok := m.related[name]
	return ok
}

// SetRelated attaches data under name. data should be a *Model, a []*Model
// or nil.
func (m *Model) SetRelated(name string, data any) {
	if m.related == nil {
		m.related = map[string]any{}
	}
	m.related[name] = data
}

// MarshalJSON encodes the attributes with the related data nested under
// their relation names.
func (m *Model) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.attrs)+len(m.related))
	for k, v := range m.attrs {
		out[k] = v
	}
	for k, v := range m.related {
		out[k] = v
	}
	return json.Marshal(out) //nolint:wrapcheck // pass through
}
