package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, username, email, password_hash, active, approved,
	totp_secret, totp_pending_secret, totp_enabled, totp_last_step,
	failed_login_count, locked_until, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a                  domain.Account
		secret, pending    sql.NullString
		lockedUntil        sql.NullInt64
		createdAt, updated int64
	)
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Active, &a.Approved,
		&secret, &pending, &a.TOTPEnabled, &a.TOTPLastStep,
		&a.FailedLoginCount, &lockedUntil, &createdAt, &updated,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.TOTPSecret = fromNullString(secret)
	a.TOTPPendingSecret = fromNullString(pending)
	a.LockedUntil = fromNullUnix(lockedUntil)
	a.CreatedAt = fromUnix(createdAt)
	a.UpdatedAt = fromUnix(updated)
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

func (r *accountsRepo) GetAccountByIdentifier(ctx context.Context, identifier string) (domain.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE username = ?1 OR email = ?1
		ORDER BY username = ?1 DESC
		LIMIT 1`, identifier))
}

func (r *accountsRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, active, approved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.Active, a.Approved,
		unix(a.CreatedAt), unix(a.CreatedAt),
	)
	return mapWriteError(err)
}

func (r *accountsRepo) UpdateAccountStatus(ctx context.Context, id string, active, approved bool) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE accounts SET active = ?, approved = ?, updated_at = unixepoch() WHERE id = ?`,
		active, approved, id))
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return requireRow(r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = unixepoch() WHERE id = ?`,
		hash, id))
}

func (r *accountsRepo) RecordLoginFailure(
	ctx context.Context,
	id string,
	now time.Time,
	threshold int,
	window time.Duration,
) (int, *time.Time, error) {
	nowUnix := unix(now)
	lockUntil := unix(now.Add(window))

	// An elapsed lock restarts the count at one.
	var (
		count       int
		lockedUntil sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts SET
			failed_login_count = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= ?1 THEN 1
				ELSE failed_login_count + 1
			END,
			locked_until = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= ?1 THEN
					CASE WHEN 1 >= ?2 THEN ?3 ELSE NULL END
				WHEN locked_until IS NOT NULL THEN locked_until
				WHEN failed_login_count + 1 >= ?2 THEN ?3
				ELSE NULL
			END,
			updated_at = ?1
		WHERE id = ?4
		RETURNING failed_login_count, locked_until`,
		nowUnix, threshold, lockUntil, id,
	).Scan(&count, &lockedUntil)
	if err != nil {
		return 0, nil, mapNotFound(err)
	}
	return count, fromNullUnix(lockedUntil), nil
}

func (r *accountsRepo) ResetLoginFailures(ctx context.Context, id string, now time.Time) (bool, error) {
	return changed(r.db.ExecContext(ctx, `
		UPDATE accounts SET failed_login_count = 0, locked_until = NULL, updated_at = ?1
		WHERE id = ?2 AND (locked_until IS NULL OR locked_until <= ?1)`,
		unix(now), id))
}

func (r *accountsRepo) ClearLockout(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts SET failed_login_count = 0, locked_until = NULL, updated_at = unixepoch()
		WHERE id = ?`, id))
}

func (r *accountsRepo) SetPendingTOTPSecret(ctx context.Context, id, secret string) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts SET totp_pending_secret = ?, updated_at = unixepoch()
		WHERE id = ? AND totp_enabled = 0`, secret, id))
}

func (r *accountsRepo) EnableTOTP(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts SET
			totp_secret = totp_pending_secret,
			totp_pending_secret = NULL,
			totp_enabled = 1,
			totp_last_step = 0,
			updated_at = unixepoch()
		WHERE id = ? AND totp_pending_secret IS NOT NULL AND totp_enabled = 0`, id))
}

func (r *accountsRepo) DisableTOTP(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, `
		UPDATE accounts SET
			totp_secret = NULL,
			totp_pending_secret = NULL,
			totp_enabled = 0,
			totp_last_step = 0,
			updated_at = unixepoch()
		WHERE id = ?`, id))
}

func (r *accountsRepo) AdvanceTOTPStep(ctx context.Context, id string, step int64) (bool, error) {
	return changed(r.db.ExecContext(ctx,
		`UPDATE accounts SET totp_last_step = ?1 WHERE id = ?2 AND totp_last_step < ?1`,
		step, id))
}
