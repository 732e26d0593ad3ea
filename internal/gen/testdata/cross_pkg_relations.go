package testdata

import amodel "github.com/example/auth/model"

type EndUser struct {
	ID            int                   `db:"id,primaryKey"`
	Name          string                `db:"name"`
	OAuthAccounts []amodel.OAuthAccount `rel:"has_many,foreign_key:end_user_id"`
	Groups        []*amodel.Group       `rel:"many_to_many,join_table:memberships,foreign_key:member_id,references:group_id"`
}
