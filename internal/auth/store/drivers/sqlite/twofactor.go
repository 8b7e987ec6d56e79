package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/pkg/idx"
)

type recoveryCodesRepo struct {
	db dbtx
}

func (r *recoveryCodesRepo) ReplaceRecoveryCodes(
	ctx context.Context,
	accountID string,
	fingerprints []string,
	now time.Time,
) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recovery_codes WHERE account_id = ?`, accountID); err != nil {
		return err
	}
	for _, fp := range fingerprints {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO recovery_codes (id, account_id, fingerprint, created_at)
			VALUES (?, ?, ?, ?)`,
			idx.New().String(), accountID, fp, unix(now))
		if err != nil {
			return mapWriteError(err)
		}
	}
	return nil
}

func (r *recoveryCodesRepo) CountUnusedRecoveryCodes(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recovery_codes WHERE account_id = ? AND used_at IS NULL`,
		accountID).Scan(&n)
	return n, err
}

func (r *recoveryCodesRepo) UseRecoveryCode(ctx context.Context, accountID, fingerprint string, now time.Time) (bool, error) {
	return changed(r.db.ExecContext(ctx, `
		UPDATE recovery_codes SET used_at = ?
		WHERE account_id = ? AND fingerprint = ? AND used_at IS NULL`,
		unix(now), accountID, fingerprint))
}

func (r *recoveryCodesRepo) DeleteRecoveryCodes(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recovery_codes WHERE account_id = ?`, accountID)
	return err
}

type challengesRepo struct {
	db dbtx
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.TwoFactorChallenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO two_factor_challenges (id, account_id, fingerprint, attempts, created_at, expires_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		c.ID, c.AccountID, c.Fingerprint, unix(c.CreatedAt), unix(c.ExpiresAt))
	return mapWriteError(err)
}

func (r *challengesRepo) GetChallengeByFingerprint(ctx context.Context, fingerprint string) (domain.TwoFactorChallenge, error) {
	var (
		c                    domain.TwoFactorChallenge
		createdAt, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, fingerprint, attempts, created_at, expires_at
		FROM two_factor_challenges WHERE fingerprint = ?`, fingerprint,
	).Scan(&c.ID, &c.AccountID, &c.Fingerprint, &c.Attempts, &createdAt, &expiresAt)
	if err != nil {
		return domain.TwoFactorChallenge{}, mapNotFound(err)
	}
	c.CreatedAt = fromUnix(createdAt)
	c.ExpiresAt = fromUnix(expiresAt)
	return c, nil
}

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`UPDATE two_factor_challenges SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`,
		id).Scan(&n)
	return n, mapNotFound(err)
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `DELETE FROM two_factor_challenges WHERE id = ?`, id))
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM two_factor_challenges WHERE expires_at <= ?`, unix(now)))
}
