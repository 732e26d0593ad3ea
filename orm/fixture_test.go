package orm_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/mickamy/eagerorm/orm"
	"github.com/mickamy/eagerorm/scope"
)

const schema = `
CREATE TABLE addresses (id INTEGER PRIMARY KEY AUTOINCREMENT, street TEXT NOT NULL);
CREATE TABLE places (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, address_id INTEGER);
CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, age INTEGER, place_id INTEGER);
CREATE TABLE things (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, user_id INTEGER);
CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, label TEXT NOT NULL);
CREATE TABLE tags_things (thing_id INTEGER NOT NULL, tag_id INTEGER NOT NULL);
`

// fixture is a SQLite database with the users/things/places/addresses/tags
// models defined and related.
type fixture struct {
	db        *orm.DB
	log       *orm.TestLogger
	users     *orm.Descriptor
	things    *orm.Descriptor
	places    *orm.Descriptor
	addresses *orm.Descriptor
	tags      *orm.Descriptor
}

func newFixture(t *testing.T, loggers ...orm.Logger) *fixture {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if _, err := sqlDB.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	log := &orm.TestLogger{}
	db := orm.New(sqlDB, orm.SQLite, orm.WithLogger(orm.MultiLogger(append([]orm.Logger{log}, loggers...)...)))

	f := &fixture{db: db, log: log}
	f.addresses = db.Define(orm.Def{Table: "addresses", Columns: []string{"id", "street"}})
	f.places = db.Define(orm.Def{Table: "places", Columns: []string{"id", "name", "address_id"}})
	adults := scope.Fixed(func(q *orm.Query) *orm.Query {
		return q.Filter(orm.Attrs{"age__gte": 18})
	})
	f.users = db.Define(orm.Def{
		Table:   "users",
		Columns: []string{"id", "name", "age", "place_id"},
		Scopes: map[string]orm.ScopeFunc{
			"adults": adults,
			"named": func(q *orm.Query, args ...any) *orm.Query {
				return q.Filter(orm.Attrs{"name": args[0]})
			},
			"oldestAdults": scope.Chain(adults, scope.Fixed(func(q *orm.Query) *orm.Query {
				return q.OrderBy("age", "desc")
			})),
		},
	})
	f.things = db.Define(orm.Def{Table: "things", Columns: []string{"id", "name", "user_id"}})
	f.tags = db.Define(orm.Def{Table: "tags"})

	f.places.BelongsTo("address", f.addresses)
	f.users.
		BelongsTo("place", f.places).
		HasMany("things", f.things)
	f.things.
		BelongsTo("user", f.users).
		BelongsToMany("tags", f.tags)
	f.tags.BelongsToMany("things", f.things)

	return f
}

// seed inserts three users (A 46, B 72, C 12). A lives at "Home" on
// "Main St" and owns two things; B owns one; C owns none and has no place.
func (f *fixture) seed(t *testing.T) {
	t.Helper()

	f.exec(t,
		`INSERT INTO addresses (id, street) VALUES (1, 'Main St')`,
		`INSERT INTO places (id, name, address_id) VALUES (1, 'Home', 1), (2, 'Work', NULL)`,
		`INSERT INTO users (id, name, age, place_id) VALUES (1, 'A', 46, 1), (2, 'B', 72, 2), (3, 'C', 12, NULL)`,
		`INSERT INTO things (id, name, user_id) VALUES (1, 'hammer', 1), (2, 'nail', 1), (3, 'saw', 2)`,
		`INSERT INTO tags (id, label) VALUES (1, 'tool'), (2, 'metal')`,
		`INSERT INTO tags_things (thing_id, tag_id) VALUES (1, 1), (1, 2), (2, 2)`,
	)
	f.log.Reset()
}

func (f *fixture) exec(t *testing.T, stmts ...string) {
	t.Helper()

	for _, s := range stmts {
		if _, err := f.db.ExecContext(t.Context(), s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
}
