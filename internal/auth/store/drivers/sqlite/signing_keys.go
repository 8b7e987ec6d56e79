package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
)

type signingKeysRepo struct {
	db dbtx
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, k domain.SigningKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (id, kid, algorithm, private_key_encrypted, created_at, retired_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		k.ID, k.Kid, k.Algorithm, k.PrivateKeyEncrypted, unix(k.CreatedAt), nullUnix(k.RetiredAt))
	return mapWriteError(err)
}

func (r *signingKeysRepo) ListActiveSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `WHERE retired_at IS NULL ORDER BY created_at ASC, id ASC`)
}

func (r *signingKeysRepo) ListAllSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	return r.list(ctx, `ORDER BY created_at DESC, id DESC`)
}

func (r *signingKeysRepo) list(ctx context.Context, clause string) ([]domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kid, algorithm, private_key_encrypted, created_at, retired_at
		FROM signing_keys `+clause)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SigningKey
	for rows.Next() {
		var (
			k         domain.SigningKey
			createdAt int64
			retiredAt sql.NullInt64
		)
		if err := rows.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &createdAt, &retiredAt); err != nil {
			return nil, err
		}
		k.CreatedAt = fromUnix(createdAt)
		k.RetiredAt = fromNullUnix(retiredAt)
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, at time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE signing_keys SET retired_at = ? WHERE kid = ? AND retired_at IS NULL`, unix(at), kid))
}

func (r *signingKeysRepo) DeleteRetiredSigningKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM signing_keys WHERE retired_at IS NOT NULL AND retired_at <= ?`, unix(cutoff)))
}
