package domain

import "time"

// PermissionAllApps grants access to every application.
const PermissionAllApps = "app.*"

// Admin permissions checked by the auth service itself.
const (
	PermissionClientsManage = "oauth.clients.manage"
	PermissionUsersManage   = "users.manage"
	PermissionKeysManage    = "keys.manage"
)

type Role struct {
	ID                string
	Name              string
	Description       string
	RequiresTwoFactor bool
	Permissions       []string
	AppGrants         []string // application names, e.g. "sonarr"
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
