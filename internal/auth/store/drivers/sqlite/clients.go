package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, secret_hash, redirect_uris, scopes, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (domain.Client, error) {
	var (
		c                    domain.Client
		redirects, scopes    string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.SecretHash, &redirects, &scopes, &createdAt, &updatedAt); err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	c.RedirectURIs = splitFields(redirects)
	c.Scopes = splitFields(scopes)
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	return scanClient(r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM oauth_clients WHERE id = ?`, id))
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM oauth_clients ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO oauth_clients (id, name, secret_hash, redirect_uris, scopes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SecretHash, joinFields(c.RedirectURIs), joinFields(c.Scopes),
		unix(c.CreatedAt), unix(c.CreatedAt))
	return mapWriteError(err)
}

func (r *clientsRepo) UpdateClientSecretHash(ctx context.Context, clientID, secretHash string, now time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE oauth_clients SET secret_hash = ?, updated_at = ? WHERE id = ?`,
		secretHash, unix(now), clientID))
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM oauth_clients WHERE id = ?`, clientID))
}
