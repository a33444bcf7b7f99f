package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Role maps a name to a flat list of permission strings stored as jsonb.
type Role struct {
	Base
	SyncFields
	GlobalScope
	Name        string         `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string         `json:"description" gorm:"type:varchar(300)"`
	Permissions datatypes.JSON `json:"permissions" gorm:"type:jsonb"`
}

func (Role) EntityName() string { return "role" }

func (Role) TableName() string { return "roles" }

// PermissionList decodes the jsonb permission column.
func (r *Role) PermissionList() []string {
	if len(r.Permissions) == 0 {
		return nil
	}
	var perms []string
	if err := json.Unmarshal(r.Permissions, &perms); err != nil {
		return nil
	}
	return perms
}

// SetPermissionList encodes perms into the jsonb column.
func (r *Role) SetPermissionList(perms []string) error {
	raw, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	r.Permissions = datatypes.JSON(raw)
	return nil
}
