package testdata

import "time"

type Author struct {
	ID   int
	Name string
	// has_many: Author has many Articles
	Articles []Article `rel:"has_many,foreign_key:author_id"`
}

type Article struct {
	ID          int
	AuthorID    int
	Title       string
	PublishedAt *time.Time
	// belongs_to: Article belongs to Author
	Author *Author `rel:"belongs_to,foreign_key:author_id"`
	// many_to_many through the conventional pivot
	Tags []Tag `rel:"many_to_many"`
	// self reference
	Parent *Article `rel:"belongs_to,foreign_key:parent_id,name:parent"`
}

type Tag struct {
	ID    int64  `db:"id,primaryKey"`
	Label string `db:"label"`
}
