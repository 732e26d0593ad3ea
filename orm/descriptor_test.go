package orm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/eagerorm/orm"
)

func TestDefineDefaults(t *testing.T) {
	t.Parallel()

	db := orm.New(nil, orm.SQLite)
	d := db.Define(orm.Def{Table: "addresses"})

	assert.Equal(t, "address", d.Name())
	assert.Equal(t, "addresses", d.Table())
	assert.Equal(t, "id", d.PrimaryKey())
	assert.Empty(t, d.Columns())
	assert.Same(t, db, d.DB())

	assert.Panics(t, func() { db.Define(orm.Def{}) })
}

func TestRelationDefaults(t *testing.T) {
	t.Parallel()

	db := orm.New(nil, orm.SQLite)
	users := db.Define(orm.Def{Table: "users"})
	places := db.Define(orm.Def{Table: "places", PrimaryKey: "code"})
	roles := db.Define(orm.Def{Table: "roles"})

	users.
		BelongsTo("place", places).
		HasMany("places", places).
		BelongsToMany("roles", roles)

	place, ok := users.Relation("place")
	require.True(t, ok)
	assert.Equal(t, orm.KindBelongsTo, place.Kind)
	assert.Equal(t, "place_id", place.ForeignKey)
	assert.Equal(t, "code", place.ForeignKeyTarget)
	assert.True(t, place.IsSingle())

	owned, _ := users.Relation("places")
	assert.Equal(t, "user_id", owned.ForeignKey)
	assert.Equal(t, "id", owned.ForeignKeyTarget)
	assert.False(t, owned.IsSingle())

	r, _ := users.Relation("roles")
	assert.Equal(t, "roles_users", r.Pivot)
	assert.Equal(t, "user_id", r.ThisKey)
	assert.Equal(t, "role_id", r.ThatKey)
	assert.Equal(t, "id", r.ThisKeyTarget)
	assert.Equal(t, "id", r.ThatKeyTarget)
	assert.Equal(t, "belongsToMany", r.Kind.String())

	assert.Equal(t, []string{"place", "places", "roles"}, users.Relations())
}

func TestRelationOptions(t *testing.T) {
	t.Parallel()

	db := orm.New(nil, orm.SQLite)
	users := db.Define(orm.Def{Table: "users"})
	groups := db.Define(orm.Def{Table: "groups"})

	users.
		BelongsTo("team", groups, orm.ForeignKey("team_ref"), orm.ForeignKeyTarget("uuid")).
		BelongsToMany("groups", groups,
			orm.Pivot("memberships"),
			orm.PivotKeys("member", "group"),
			orm.PivotTargets("uid", "gid"))

	team, _ := users.Relation("team")
	assert.Equal(t, "team_ref", team.ForeignKey)
	assert.Equal(t, "uuid", team.ForeignKeyTarget)

	g, _ := users.Relation("groups")
	assert.Equal(t, "memberships", g.Pivot)
	assert.Equal(t, "member", g.ThisKey)
	assert.Equal(t, "group", g.ThatKey)
	assert.Equal(t, "uid", g.ThisKeyTarget)
	assert.Equal(t, "gid", g.ThatKeyTarget)
}

func TestRelationsAreValues(t *testing.T) {
	t.Parallel()

	db := orm.New(nil, orm.SQLite)
	users := db.Define(orm.Def{Table: "users"})
	things := db.Define(orm.Def{Table: "things"})
	users.HasMany("things", things)

	got, _ := users.Relation("things")
	want := orm.Relation{
		Kind:             orm.KindHasMany,
		Name:             "things",
		Source:           users,
		Related:          things,
		ForeignKey:       "user_id",
		ForeignKeyTarget: "id",
	}
	assert.True(t, got == want, "got %+v", got)
}

func TestRelateAfterUsePanics(t *testing.T) {
	t.Parallel()

	db := orm.New(nil, orm.SQLite)
	users := db.Define(orm.Def{Table: "users"})
	things := db.Define(orm.Def{Table: "things"})
	users.HasMany("things", things)

	assert.Panics(t, func() { users.HasMany("things", things) }, "duplicate name")

	_ = users.Objects()
	assert.Panics(t, func() { users.HasMany("more", things) }, "sealed")

	rel, _ := users.Relation("things")
	assert.Panics(t, func() { things.Relate(rel) }, "foreign source")
}

type plain struct{}

type valueNamer struct{}

func (valueNamer) TableName() string { return "custom_values" }

type ptrNamer struct{}

func (*ptrNamer) TableName() string { return "custom_ptrs" }

func TestResolveTableName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		resolve  func() string
		expected string
	}{
		{"fallback", func() string { return orm.ResolveTableName[plain]("fallback") }, "fallback"},
		{"value receiver", func() string { return orm.ResolveTableName[valueNamer]("fallback") }, "custom_values"},
		{"pointer receiver", func() string { return orm.ResolveTableName[ptrNamer]("fallback") }, "custom_ptrs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.resolve(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
