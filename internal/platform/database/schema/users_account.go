// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table          string
	ID             string
	Email          string
	EmailConfirmed string
	DisplayName    string
	AvatarURL      string
	CreatedAt      string
	UpdatedAt      string
	LastSignInAt   string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:          "users.account",
	ID:             "id",
	Email:          "email",
	EmailConfirmed: "emailconfirmed",
	DisplayName:    "displayname",
	AvatarURL:      "avatarurl",
	CreatedAt:      "createdat",
	UpdatedAt:      "updatedat",
	LastSignInAt:   "lastsigninat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.EmailConfirmed, t.DisplayName, t.AvatarURL,
		t.CreatedAt, t.UpdatedAt, t.LastSignInAt,
	}
}
