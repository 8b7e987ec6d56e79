package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/idx"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

const (
	DefaultSessionSlots = 5
	DefaultChallengeTTL = 5 * time.Minute

	// MaxChallengeAttempts bounds wrong codes against one challenge.
	MaxChallengeAttempts = 5
)

// OccupiedSlot is a slot the browser already holds.
type OccupiedSlot struct {
	Slot      int
	AccountID string
	SessionID string
}

type LoginInput struct {
	Identifier string
	Password   string
	Code       string // optional TOTP or recovery code
	Occupied   []OccupiedSlot
	UserAgent  string
	IP         string
}

type ChallengeInput struct {
	ChallengeToken string
	Code           string
	Occupied       []OccupiedSlot
	UserAgent      string
	IP             string
}

// LoginResult is a newly created session. Token is the signed session token
// and is only returned here.
type LoginResult struct {
	Account domain.Account
	Session domain.Session
	Token   string
	Evicted *OccupiedSlot // the slot-0 session pushed out, if any
}

// Identity is a resolved, live session.
type Identity struct {
	Account domain.Account
	Session domain.Session
	Claims  jwtx.Claims
}

// SessionService issues and resolves multi-slot browser sessions.
type SessionService struct {
	Store        store.Store
	Credentials  *CredentialService
	TwoFactor    *TwoFactorService
	Permissions  *PermissionService
	KeyManager   *jwtx.KeyManager
	Audit        AuditSink
	Metrics      *metrics.Metrics // optional
	Issuer       string
	Slots        int           // default 5
	SessionTTL   time.Duration // default 7d
	ChallengeTTL time.Duration // default 5m
	Now          func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NumSlots returns the configured slot count.
func (s *SessionService) NumSlots() int {
	if s.Slots <= 0 {
		return DefaultSessionSlots
	}
	return s.Slots
}

func (s *SessionService) countLogin(outcome string) {
	if s.Metrics != nil {
		s.Metrics.Logins.WithLabelValues(outcome).Inc()
	}
}

func (s *SessionService) sessionTTL() time.Duration {
	if s.SessionTTL <= 0 {
		return jwtx.DefaultSessionTTL
	}
	return s.SessionTTL
}

func (s *SessionService) challengeTTL() time.Duration {
	if s.ChallengeTTL <= 0 {
		return DefaultChallengeTTL
	}
	return s.ChallengeTTL
}

// Login verifies credentials and creates a session, or returns a
// *TwoFactorRequiredError carrying a challenge when a second factor is due
// and none was supplied.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	acct, err := s.Credentials.VerifyLogin(ctx, in.Identifier, in.Password)
	if err != nil {
		if errors.Is(err, ErrAccountLocked) {
			s.countLogin("locked")
		} else {
			s.countLogin("failure")
		}
		return LoginResult{}, err
	}

	caps, err := s.Permissions.Resolve(ctx, acct.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if caps.RequiresTwoFactor() && !acct.TOTPEnabled {
		return LoginResult{}, ErrTwoFactorSetupRequired
	}

	amr := []string{AMRPassword}
	if acct.TOTPEnabled {
		if strings.TrimSpace(in.Code) == "" {
			s.countLogin("challenge")
			return LoginResult{}, s.issueChallenge(ctx, acct)
		}

		methods, err := s.TwoFactor.verifySecondFactor(ctx, acct, in.Code)
		if err != nil {
			return LoginResult{}, s.factorFailed(ctx, acct.ID, err)
		}
		if err := s.Credentials.SettleLogin(ctx, acct.ID); err != nil {
			return LoginResult{}, err
		}
		amr = append(amr, methods...)
	}

	return s.createSession(ctx, acct, amr, in.Occupied, in.UserAgent, in.IP)
}

func (s *SessionService) issueChallenge(ctx context.Context, acct domain.Account) error {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := s.now()
	ttl := s.challengeTTL()
	err = s.Store.Challenges().CreateChallenge(ctx, domain.TwoFactorChallenge{
		ID:          idx.NewAt(now).String(),
		AccountID:   acct.ID,
		Fingerprint: cryptox.FingerprintToken(token),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	})
	if err != nil {
		return err
	}

	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditTwoFactorChallenged, AccountID: acct.ID, At: now})
	return &TwoFactorRequiredError{
		ChallengeToken: token,
		ExpiresIn:      ttl,
		Methods:        []string{MethodTOTP, MethodRecoveryCode},
	}
}

// CompleteChallenge finishes a login that returned a challenge. A challenge
// is consumed on success, on expiry and when its attempts run out.
func (s *SessionService) CompleteChallenge(ctx context.Context, in ChallengeInput) (LoginResult, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	token := strings.TrimSpace(in.ChallengeToken)
	if token == "" {
		return LoginResult{}, ErrChallengeInvalid
	}

	ch, err := s.Store.Challenges().GetChallengeByFingerprint(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrChallengeInvalid
		}
		return LoginResult{}, err
	}

	if !now.Before(ch.ExpiresAt) {
		_ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
		return LoginResult{}, ErrChallengeInvalid
	}
	if ch.Attempts >= MaxChallengeAttempts {
		_ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
		return LoginResult{}, ErrTooManyAttempts
	}

	acct, err := s.Store.Accounts().GetAccountByID(ctx, ch.AccountID)
	if err != nil {
		return LoginResult{}, err
	}
	if !acct.CanSignIn() {
		_ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
		return LoginResult{}, ErrAccountInactive
	}
	if !acct.TOTPEnabled {
		_ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
		return LoginResult{}, ErrChallengeInvalid
	}
	if acct.LockedAt(now) {
		_ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
		return LoginResult{}, newLockedOutError(*acct.LockedUntil, now)
	}

	methods, err := s.TwoFactor.verifySecondFactor(ctx, acct, in.Code)
	if err != nil {
		err = s.factorFailed(ctx, acct.ID, err)
		if errors.Is(err, ErrInvalidTwoFactorCode) {
			attempts, ierr := s.Store.Challenges().IncrementChallengeAttempts(ctx, ch.ID)
			if ierr != nil {
				l.Error("failed to count challenge attempt", "error", ierr)
			} else if attempts >= MaxChallengeAttempts {
				_ = s.Store.Challenges().DeleteChallenge(ctx, ch.ID)
			}
		}
		return LoginResult{}, err
	}

	// Only one caller consumes the challenge.
	if err := s.Store.Challenges().DeleteChallenge(ctx, ch.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrChallengeInvalid
		}
		return LoginResult{}, err
	}

	if err := s.Credentials.SettleLogin(ctx, acct.ID); err != nil {
		return LoginResult{}, err
	}

	amr := append([]string{AMRPassword}, methods...)
	return s.createSession(ctx, acct, amr, in.Occupied, in.UserAgent, in.IP)
}

// factorFailed audits a rejected second factor. A wrong code counts towards
// the account lockout; other errors pass through unchanged.
func (s *SessionService) factorFailed(ctx context.Context, accountID string, err error) error {
	s.auditFactorFailure(ctx, accountID, err)
	if !errors.Is(err, ErrInvalidTwoFactorCode) {
		return err
	}
	if rerr := s.Credentials.RecordSecondFactorFailure(ctx, accountID); rerr != nil {
		slogx.FromContext(ctx).Error("failed to count second factor failure", "error", rerr)
	}
	return err
}

func (s *SessionService) auditFactorFailure(ctx context.Context, accountID string, err error) {
	s.countLogin("failure")
	auditOrNop(s.Audit).Record(ctx, AuditEvent{
		Type:      AuditTwoFactorFailed,
		AccountID: accountID,
		Reason:    err.Error(),
		At:        s.now(),
	})
}

// ChooseSlot picks the slot for accountID given the browser's occupied
// slots: the account's own slot, else the lowest free one, else slot 0,
// whose holder is returned as evicted.
func ChooseSlot(accountID string, occupied []OccupiedSlot, n int) (int, *OccupiedSlot) {
	for _, o := range occupied {
		if o.AccountID == accountID {
			return o.Slot, nil
		}
	}

	taken := make([]bool, n)
	for _, o := range occupied {
		if o.Slot >= 0 && o.Slot < n {
			taken[o.Slot] = true
		}
	}
	if free := slices.Index(taken, false); free >= 0 {
		return free, nil
	}

	for _, o := range occupied {
		if o.Slot == 0 {
			evicted := o
			return 0, &evicted
		}
	}
	return 0, nil
}

func (s *SessionService) createSession(
	ctx context.Context,
	acct domain.Account,
	amr []string,
	occupied []OccupiedSlot,
	userAgent, ip string,
) (LoginResult, error) {
	now := s.now()
	slot, evicted := ChooseSlot(acct.ID, occupied, s.NumSlots())
	sessionID := idx.NewAt(now).String()

	claims := jwtx.NewClaims(jwtx.TokenUseSession, s.Issuer, acct.ID, []string{s.Issuer}, s.sessionTTL(), now)
	claims.SID = sessionID
	claims.Slot = &slot
	claims.AMR = amr
	claims.PreferredUsername = acct.Username

	token, err := s.KeyManager.Sign(claims)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign session token: %w", err)
	}

	sess := domain.Session{
		ID:          sessionID,
		AccountID:   acct.ID,
		Slot:        slot,
		Fingerprint: cryptox.FingerprintToken(token),
		UserAgent:   truncate(userAgent, 512),
		IP:          ip,
		CreatedAt:   now,
		ExpiresAt:   claims.ExpiresAt.Time,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if evicted != nil && evicted.SessionID != "" {
			if _, err := tx.Sessions().RevokeSession(ctx, evicted.SessionID, now); err != nil {
				return err
			}
		}
		if _, err := tx.Sessions().RevokeSlotSessions(ctx, acct.ID, slot, now); err != nil {
			return err
		}
		return tx.Sessions().CreateSession(ctx, sess)
	})
	if err != nil {
		return LoginResult{}, err
	}

	audit := auditOrNop(s.Audit)
	if evicted != nil {
		audit.Record(ctx, AuditEvent{
			Type:      AuditSessionRevoked,
			AccountID: evicted.AccountID,
			SessionID: evicted.SessionID,
			Reason:    "evicted from slot 0",
			At:        now,
		})
	}
	audit.Record(ctx, AuditEvent{Type: AuditSessionCreated, AccountID: acct.ID, SessionID: sess.ID, At: now})
	audit.Record(ctx, AuditEvent{Type: AuditLoginSucceeded, AccountID: acct.ID, SessionID: sess.ID, At: now})
	s.countLogin("success")

	return LoginResult{Account: acct, Session: sess, Token: token, Evicted: evicted}, nil
}

// Resolve verifies a session token and loads its live session and account.
// Every failure wraps ErrUnauthenticated.
func (s *SessionService) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := s.KeyManager.Verifier.WithUse(jwtx.TokenUseSession).Verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.SID == "" {
		return Identity{}, fmt.Errorf("%w: token without session id", ErrUnauthenticated)
	}

	sess, err := s.Store.Sessions().GetSessionByID(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrSessionNotFound)
		}
		return Identity{}, err
	}

	now := s.now()
	switch {
	case sess.RevokedAt != nil:
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrSessionRevoked)
	case !now.Before(sess.ExpiresAt):
		return Identity{}, fmt.Errorf("%w: session expired", ErrUnauthenticated)
	case sess.AccountID != claims.Subject:
		return Identity{}, fmt.Errorf("%w: subject mismatch", ErrUnauthenticated)
	case subtle.ConstantTimeCompare([]byte(sess.Fingerprint), []byte(cryptox.FingerprintToken(token))) != 1:
		return Identity{}, fmt.Errorf("%w: fingerprint mismatch", ErrUnauthenticated)
	}

	acct, err := s.Store.Accounts().GetAccountByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Identity{}, fmt.Errorf("%w: account gone", ErrUnauthenticated)
		}
		return Identity{}, err
	}
	if !acct.CanSignIn() {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrAccountInactive)
	}

	return Identity{Account: acct, Session: sess, Claims: claims}, nil
}

// Switch resolves the session in the target slot. The caller moves the
// active pointer; no other slot is touched.
func (s *SessionService) Switch(ctx context.Context, token string, slot int) (Identity, error) {
	id, err := s.Resolve(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if id.Session.Slot != slot {
		return Identity{}, fmt.Errorf("%w: token belongs to slot %d", ErrUnauthenticated, id.Session.Slot)
	}
	return id, nil
}

// List returns the live sessions of an account, newest first.
func (s *SessionService) List(ctx context.Context, accountID string) ([]domain.Session, error) {
	return s.Store.Sessions().ListLiveSessions(ctx, accountID, s.now())
}

// Revoke revokes one session owned by accountID.
func (s *SessionService) Revoke(ctx context.Context, accountID, sessionID string) error {
	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.AccountID != accountID || sess.RevokedAt != nil {
		return ErrSessionNotFound
	}

	return s.revoke(ctx, sess, "revoked by owner")
}

// Logout revokes the caller's own session. Revoking twice is not an error.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.revoke(ctx, sess, "")
}

func (s *SessionService) revoke(ctx context.Context, sess domain.Session, reason string) error {
	now := s.now()
	changed, err := s.Store.Sessions().RevokeSession(ctx, sess.ID, now)
	if err != nil {
		return err
	}
	if changed {
		auditOrNop(s.Audit).Record(ctx, AuditEvent{
			Type:      AuditSessionRevoked,
			AccountID: sess.AccountID,
			SessionID: sess.ID,
			Reason:    reason,
			At:        now,
		})
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
