package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, kind, fingerprint, family_id, client_id, account_id, session_id, scope, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Kind), t.Fingerprint, t.FamilyID, t.ClientID, t.AccountID, t.SessionID, t.Scope,
		unix(t.ExpiresAt), unix(t.CreatedAt))
	return mapWriteError(err)
}

func (r *tokensRepo) GetTokenByFingerprint(
	ctx context.Context,
	kind domain.TokenKind,
	fingerprint string,
) (domain.Token, error) {
	var (
		t                    domain.Token
		k                    string
		expiresAt, createdAt int64
		revokedAt            sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, fingerprint, family_id, client_id, account_id, session_id, scope,
			expires_at, revoked_at, created_at
		FROM tokens WHERE kind = ? AND fingerprint = ?`, string(kind), fingerprint,
	).Scan(&t.ID, &k, &t.Fingerprint, &t.FamilyID, &t.ClientID, &t.AccountID, &t.SessionID, &t.Scope,
		&expiresAt, &revokedAt, &createdAt)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	t.Kind = domain.TokenKind(k)
	t.ExpiresAt = fromUnix(expiresAt)
	t.RevokedAt = fromNullUnix(revokedAt)
	t.CreatedAt = fromUnix(createdAt)
	return t, nil
}

func (r *tokensRepo) RevokeToken(ctx context.Context, id string, now time.Time) (bool, error) {
	return changed(r.db.ExecContext(ctx,
		`UPDATE tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, unix(now), id))
}

func (r *tokensRepo) RevokeTokenFamily(ctx context.Context, familyID string, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE tokens SET revoked_at = ? WHERE family_id = ? AND revoked_at IS NULL`, unix(now), familyID))
}

// DeleteExpiredTokens keeps expired refresh tokens whose family still has a
// live member, so reuse of an old token is still detected.
func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx, `
		DELETE FROM tokens
		WHERE expires_at <= ?1
		AND NOT EXISTS (
			SELECT 1 FROM tokens live
			WHERE live.family_id = tokens.family_id AND live.expires_at > ?1
		)`, unix(now)))
}
