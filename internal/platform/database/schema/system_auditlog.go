// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// SystemAuditLogTable represents the 'system.auditlog' table
type SystemAuditLogTable struct {
	Table        string
	ID           string
	ActorID      string
	Action       string
	Result       string
	IPAddress    string
	ErrorMessage string
	CreatedAt    string
}

var SystemAuditLog = SystemAuditLogTable{
	Table:        "system.auditlog",
	ID:           "id",
	ActorID:      "actorid",
	Action:       "action",
	Result:       "result",
	IPAddress:    "ipaddress",
	ErrorMessage: "errormessage",
	CreatedAt:    "createdat",
}

// Columns returns the insertable column names
func (t SystemAuditLogTable) Columns() []string {
	return []string{
		t.ID, t.ActorID, t.Action, t.Result, t.IPAddress, t.ErrorMessage, t.CreatedAt,
	}
}
