package testdata

type Profile struct {
	ID    int
	Email Email `rel:"has_one,foreign_key:profile_id"`
}

type Email struct {
	ID int
}
