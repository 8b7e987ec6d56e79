package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, account_id, slot, fingerprint, user_agent, ip, created_at, expires_at, revoked_at`

func scanSession(row interface{ Scan(...any) error }) (domain.Session, error) {
	var (
		s                    domain.Session
		createdAt, expiresAt int64
		revokedAt            sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.AccountID, &s.Slot, &s.Fingerprint, &s.UserAgent, &s.IP,
		&createdAt, &expiresAt, &revokedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.CreatedAt = fromUnix(createdAt)
	s.ExpiresAt = fromUnix(expiresAt)
	s.RevokedAt = fromNullUnix(revokedAt)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, slot, fingerprint, user_agent, ip, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.Slot, s.Fingerprint, s.UserAgent, s.IP,
		unix(s.CreatedAt), unix(s.ExpiresAt),
	)
	return mapWriteError(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) ListLiveSessions(ctx context.Context, accountID string, now time.Time) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE account_id = ? AND revoked_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC, id DESC`, accountID, unix(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string, now time.Time) (bool, error) {
	return changed(r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		unix(now), id))
}

// RevokeSlotSessions also revokes expired rows so the partial unique index
// on (account_id, slot) admits the next insert.
func (r *sessionsRepo) RevokeSlotSessions(ctx context.Context, accountID string, slot int, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ?
		WHERE account_id = ? AND slot = ? AND revoked_at IS NULL`,
		unix(now), accountID, slot))
}

func (r *sessionsRepo) RevokeAccountSessions(ctx context.Context, accountID string, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE account_id = ? AND revoked_at IS NULL`,
		unix(now), accountID))
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, unix(now)))
}
