package sqlite

import (
	"context"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
)

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, requires_2fa, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		role.ID, role.Name, role.Description, role.RequiresTwoFactor,
		unix(role.CreatedAt), unix(role.CreatedAt))
	if err != nil {
		return mapWriteError(err)
	}

	for _, p := range role.Permissions {
		if err := r.AddPermission(ctx, role.ID, p); err != nil {
			return err
		}
	}
	for _, app := range role.AppGrants {
		if err := r.AddAppGrant(ctx, role.ID, app); err != nil {
			return err
		}
	}
	return nil
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name string) (domain.Role, error) {
	roles, err := r.queryRoles(ctx, `WHERE r.name = ?`, name)
	if err != nil {
		return domain.Role{}, err
	}
	if len(roles) == 0 {
		return domain.Role{}, store.ErrNotFound
	}
	return roles[0], nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return r.queryRoles(ctx, ``)
}

func (r *rolesRepo) ListRolesForAccount(ctx context.Context, accountID string) ([]domain.Role, error) {
	return r.queryRoles(ctx,
		`JOIN account_roles ar ON ar.role_id = r.id WHERE ar.account_id = ?`, accountID)
}

// queryRoles loads roles matching the clause, then their permissions and
// app grants as two aggregated columns.
func (r *rolesRepo) queryRoles(ctx context.Context, clause string, args ...any) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.requires_2fa, r.created_at, r.updated_at,
			COALESCE((SELECT group_concat(permission, ' ') FROM role_permissions WHERE role_id = r.id), ''),
			COALESCE((SELECT group_concat(app, ' ') FROM role_app_grants WHERE role_id = r.id), '')
		FROM roles r `+clause+`
		ORDER BY r.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var (
			role                 domain.Role
			createdAt, updatedAt int64
			perms, apps          string
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.RequiresTwoFactor,
			&createdAt, &updatedAt, &perms, &apps); err != nil {
			return nil, err
		}
		role.CreatedAt = fromUnix(createdAt)
		role.UpdatedAt = fromUnix(updatedAt)
		role.Permissions = splitFields(perms)
		role.AppGrants = splitFields(apps)
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *rolesRepo) AssignRole(ctx context.Context, accountID, roleID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO account_roles (account_id, role_id) VALUES (?, ?)`,
		accountID, roleID)
	return mapWriteError(err)
}

func (r *rolesRepo) UnassignRole(ctx context.Context, accountID, roleID string) error {
	return requireRow(r.db.ExecContext(ctx,
		`DELETE FROM account_roles WHERE account_id = ? AND role_id = ?`, accountID, roleID))
}

func (r *rolesRepo) AddPermission(ctx context.Context, roleID, permission string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO role_permissions (role_id, permission) VALUES (?, ?)`,
		roleID, permission)
	return mapWriteError(err)
}

func (r *rolesRepo) AddAppGrant(ctx context.Context, roleID, app string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO role_app_grants (role_id, app) VALUES (?, ?)`,
		roleID, app)
	return mapWriteError(err)
}
