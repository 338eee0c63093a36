// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserIdentityLinkTable represents the 'users.identitylink' table
type UserIdentityLinkTable struct {
	Table          string
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	LinkedAt       string
	UpdatedAt      string

	// Constraint names surfaced by pgconn.PgError.ConstraintName.
	UniqueProviderUser string
	UniqueUserProvider string
}

// UserIdentityLink is the schema definition for users.identitylink
var UserIdentityLink = UserIdentityLinkTable{
	Table:          "users.identitylink",
	ID:             "id",
	UserID:         "userid",
	Provider:       "provider",
	ProviderUserID: "provideruserid",
	LinkedAt:       "linkedat",
	UpdatedAt:      "updatedat",

	UniqueProviderUser: "identitylink_provider_provideruserid_key",
	UniqueUserProvider: "identitylink_userid_provider_key",
}

// Columns returns all standard column names
func (t UserIdentityLinkTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.Provider, t.ProviderUserID, t.LinkedAt, t.UpdatedAt,
	}
}
