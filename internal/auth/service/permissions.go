package service

import (
	"context"
	"slices"
	"strings"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
)

// appPermissionPrefix turns an app grant into a permission, e.g. "app.sonarr".
const appPermissionPrefix = "app."

// AppAccess is either every application or a named set.
type AppAccess struct {
	All   bool
	Named []string // sorted, empty when All
}

// Allows reports whether app is reachable.
func (a AppAccess) Allows(app string) bool {
	return a.All || slices.Contains(a.Named, app)
}

// Capabilities is the resolved union of an account's roles. It is built per
// call and never cached.
type Capabilities struct {
	perms             map[string]struct{}
	apps              map[string]struct{}
	allApps           bool
	requiresTwoFactor bool
}

// NewCapabilities merges roles. Each app grant also appears as an "app.<name>"
// permission, and holding "app.<name>" grants that app.
func NewCapabilities(roles []domain.Role) *Capabilities {
	c := &Capabilities{
		perms: make(map[string]struct{}),
		apps:  make(map[string]struct{}),
	}

	for _, r := range roles {
		if r.RequiresTwoFactor {
			c.requiresTwoFactor = true
		}
		for _, p := range r.Permissions {
			c.perms[p] = struct{}{}
			switch {
			case p == domain.PermissionAllApps:
				c.allApps = true
			case strings.HasPrefix(p, appPermissionPrefix):
				c.apps[strings.TrimPrefix(p, appPermissionPrefix)] = struct{}{}
			}
		}
		for _, app := range r.AppGrants {
			c.apps[app] = struct{}{}
			c.perms[appPermissionPrefix+app] = struct{}{}
		}
	}
	return c
}

// Permissions returns the sorted permission set.
func (c *Capabilities) Permissions() []string {
	out := make([]string, 0, len(c.perms))
	for p := range c.perms {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (c *Capabilities) AppAccess() AppAccess {
	if c.allApps {
		return AppAccess{All: true}
	}
	named := make([]string, 0, len(c.apps))
	for app := range c.apps {
		named = append(named, app)
	}
	slices.Sort(named)
	return AppAccess{Named: named}
}

func (c *Capabilities) HasPermission(perm string) bool {
	_, ok := c.perms[perm]
	return ok
}

func (c *Capabilities) HasAppAccess(app string) bool {
	if c.allApps {
		return true
	}
	_, ok := c.apps[app]
	return ok
}

// RequiresTwoFactor reports whether any role demands 2FA.
func (c *Capabilities) RequiresTwoFactor() bool { return c.requiresTwoFactor }

// PermissionService resolves capabilities from the store on every call, so
// role changes take effect on the next request.
type PermissionService struct {
	Store store.Store
}

func (s *PermissionService) Resolve(ctx context.Context, accountID string) (*Capabilities, error) {
	roles, err := s.Store.Roles().ListRolesForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return NewCapabilities(roles), nil
}

func (s *PermissionService) EffectivePermissions(ctx context.Context, accountID string) ([]string, error) {
	c, err := s.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return c.Permissions(), nil
}

func (s *PermissionService) EffectiveAppAccess(ctx context.Context, accountID string) (AppAccess, error) {
	c, err := s.Resolve(ctx, accountID)
	if err != nil {
		return AppAccess{}, err
	}
	return c.AppAccess(), nil
}

// HasPermission satisfies httpx.PermissionChecker.
func (s *PermissionService) HasPermission(ctx context.Context, accountID, perm string) (bool, error) {
	c, err := s.Resolve(ctx, accountID)
	if err != nil {
		return false, err
	}
	return c.HasPermission(perm), nil
}

func (s *PermissionService) HasAppAccess(ctx context.Context, accountID, app string) (bool, error) {
	c, err := s.Resolve(ctx, accountID)
	if err != nil {
		return false, err
	}
	return c.HasAppAccess(app), nil
}
