package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (
			id, fingerprint, client_id, account_id, session_id, redirect_uri, scope,
			code_challenge, code_challenge_method, nonce, auth_time, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Fingerprint, c.ClientID, c.AccountID, c.SessionID, c.RedirectURI, c.Scope,
		c.CodeChallenge, c.CodeChallengeMethod, c.Nonce,
		unix(c.AuthTime), unix(c.ExpiresAt), unix(c.CreatedAt))
	return mapWriteError(err)
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByFingerprint(
	ctx context.Context,
	fingerprint string,
) (domain.AuthorizationCode, error) {
	var (
		c                              domain.AuthorizationCode
		authTime, expiresAt, createdAt int64
		usedAt                         sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, client_id, account_id, session_id, redirect_uri, scope,
			code_challenge, code_challenge_method, nonce, auth_time, expires_at, used_at, created_at
		FROM authorization_codes WHERE fingerprint = ?`, fingerprint,
	).Scan(&c.ID, &c.Fingerprint, &c.ClientID, &c.AccountID, &c.SessionID, &c.RedirectURI, &c.Scope,
		&c.CodeChallenge, &c.CodeChallengeMethod, &c.Nonce, &authTime, &expiresAt, &usedAt, &createdAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.AuthTime = fromUnix(authTime)
	c.ExpiresAt = fromUnix(expiresAt)
	c.UsedAt = fromNullUnix(usedAt)
	c.CreatedAt = fromUnix(createdAt)
	return c, nil
}

func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	return changed(r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		unix(now), id))
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at <= ?`, unix(now)))
}
