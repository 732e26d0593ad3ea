package testdata

type Event struct {
	Name string `db:"name"`
	At   string `db:"at"`
}
