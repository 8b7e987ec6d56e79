package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	// RecoveryCodeCount is the size of a fresh recovery set.
	RecoveryCodeCount = 10

	totpPeriod = 30 // seconds
	totpSkew   = 1  // steps either side of now
	qrSize     = 256

	MethodTOTP         = "totp"
	MethodRecoveryCode = "recovery_code"
)

// Authentication method references (RFC 8176).
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
	AMRMFA      = "mfa"
)

var totpOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Skew:      totpSkew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// TwoFactorSetup is returned when setup begins. Secret and URI are shown
// once; the secret only becomes active after ConfirmSetup.
type TwoFactorSetup struct {
	Secret    string
	URI       string
	QRCodePNG []byte
}

// RecoveryResult reports the state after a recovery code was spent.
type RecoveryResult struct {
	Remaining int
	Disabled  bool // the last code was used and 2FA switched off
}

type TwoFactorStatus struct {
	Enabled                bool
	Pending                bool
	RemainingRecoveryCodes int
}

// TwoFactorService drives TOTP setup and verification and owns the
// recovery code set of an account.
type TwoFactorService struct {
	Store       store.Store
	Credentials *CredentialService
	Audit       AuditSink
	Issuer      string // label in authenticator apps
	Now         func() time.Time
}

func (s *TwoFactorService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TwoFactorService) account(ctx context.Context, accountID string) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	return acct, nil
}

// BeginSetup generates a pending secret. Calling it again before
// confirmation replaces the pending secret.
func (s *TwoFactorService) BeginSetup(ctx context.Context, accountID string) (TwoFactorSetup, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	if acct.TOTPEnabled {
		return TwoFactorSetup{}, ErrTwoFactorAlreadyEnabled
	}

	issuer := s.Issuer
	if issuer == "" {
		issuer = "kubarr"
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: acct.Username,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("generate totp key: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, qrSize)
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("encode qr code: %w", err)
	}

	if err := s.Store.Accounts().SetPendingTOTPSecret(ctx, acct.ID, key.Secret()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TwoFactorSetup{}, ErrTwoFactorAlreadyEnabled
		}
		return TwoFactorSetup{}, err
	}

	return TwoFactorSetup{
		Secret:    key.Secret(),
		URI:       key.URL(),
		QRCodePNG: png,
	}, nil
}

// ConfirmSetup checks code against the pending secret, enables 2FA and
// returns a fresh recovery set in plaintext, exactly once.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, accountID, code string) ([]string, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.TOTPEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}
	if acct.TOTPPendingSecret == nil {
		return nil, ErrTwoFactorNotPending
	}

	now := s.now()
	step, ok := matchTOTP(*acct.TOTPPendingSecret, code, now)
	if !ok {
		return nil, ErrInvalidTwoFactorCode
	}

	codes, fingerprints, err := newRecoveryCodes()
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().EnableTOTP(ctx, acct.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTwoFactorNotPending
			}
			return err
		}
		if _, err := tx.Accounts().AdvanceTOTPStep(ctx, acct.ID, step); err != nil {
			return err
		}
		return tx.RecoveryCodes().ReplaceRecoveryCodes(ctx, acct.ID, fingerprints, now)
	})
	if err != nil {
		return nil, err
	}

	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditTwoFactorEnabled, AccountID: acct.ID, At: now})
	return codes, nil
}

// VerifyCode checks a 6-digit TOTP value. Each 30s step is accepted once.
func (s *TwoFactorService) VerifyCode(ctx context.Context, accountID, code string) error {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return err
	}
	return s.verifyTOTP(ctx, acct, code)
}

func (s *TwoFactorService) verifyTOTP(ctx context.Context, acct domain.Account, code string) error {
	if !acct.TOTPEnabled || acct.TOTPSecret == nil {
		return ErrTwoFactorNotEnabled
	}

	step, ok := matchTOTP(*acct.TOTPSecret, code, s.now())
	if !ok {
		return ErrInvalidTwoFactorCode
	}

	fresh, err := s.Store.Accounts().AdvanceTOTPStep(ctx, acct.ID, step)
	if err != nil {
		return err
	}
	if !fresh {
		return fmt.Errorf("%w: step already used", ErrInvalidTwoFactorCode)
	}
	return nil
}

// VerifyRecovery spends one recovery code. Spending the last one disables
// 2FA in the same transaction.
func (s *TwoFactorService) VerifyRecovery(ctx context.Context, accountID, code string) (RecoveryResult, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return RecoveryResult{}, err
	}
	return s.verifyRecovery(ctx, acct, code)
}

func (s *TwoFactorService) verifyRecovery(ctx context.Context, acct domain.Account, code string) (RecoveryResult, error) {
	if !acct.TOTPEnabled {
		return RecoveryResult{}, ErrTwoFactorNotEnabled
	}

	now := s.now()
	fp := cryptox.FingerprintToken(cryptox.NormalizeCode(code))

	var result RecoveryResult
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		unused, err := tx.RecoveryCodes().CountUnusedRecoveryCodes(ctx, acct.ID)
		if err != nil {
			return err
		}
		if unused == 0 {
			return ErrRecoveryCodesExhausted
		}

		used, err := tx.RecoveryCodes().UseRecoveryCode(ctx, acct.ID, fp, now)
		if err != nil {
			return err
		}
		if !used {
			return ErrInvalidTwoFactorCode
		}

		result.Remaining = unused - 1
		if result.Remaining > 0 {
			return nil
		}

		result.Disabled = true
		if err := tx.Accounts().DisableTOTP(ctx, acct.ID); err != nil {
			return err
		}
		return tx.RecoveryCodes().DeleteRecoveryCodes(ctx, acct.ID)
	})
	if err != nil {
		return RecoveryResult{}, err
	}

	audit := auditOrNop(s.Audit)
	audit.Record(ctx, AuditEvent{Type: AuditRecoveryCodeUsed, AccountID: acct.ID, At: now})
	if result.Disabled {
		audit.Record(ctx, AuditEvent{
			Type:      AuditTwoFactorDisabled,
			AccountID: acct.ID,
			Reason:    "recovery codes exhausted",
			At:        now,
		})
	}
	return result, nil
}

// verifySecondFactor accepts a TOTP value or a recovery code and returns
// the AMR values to add to the session.
func (s *TwoFactorService) verifySecondFactor(ctx context.Context, acct domain.Account, code string) ([]string, error) {
	code = strings.TrimSpace(code)
	if looksLikeTOTP(code) {
		if err := s.verifyTOTP(ctx, acct, code); err != nil {
			return nil, err
		}
		return []string{AMROTP, AMRMFA}, nil
	}

	if _, err := s.verifyRecovery(ctx, acct, code); err != nil {
		return nil, err
	}
	return []string{AMRMFA}, nil
}

// Disable re-proves the password, then removes the secret and every
// recovery code.
func (s *TwoFactorService) Disable(ctx context.Context, accountID, password string) error {
	if err := s.Credentials.VerifyPassword(ctx, accountID, password); err != nil {
		return err
	}

	acct, err := s.account(ctx, accountID)
	if err != nil {
		return err
	}
	if !acct.TOTPEnabled && acct.TOTPPendingSecret == nil {
		return ErrTwoFactorNotEnabled
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().DisableTOTP(ctx, acct.ID); err != nil {
			return err
		}
		return tx.RecoveryCodes().DeleteRecoveryCodes(ctx, acct.ID)
	})
	if err != nil {
		return err
	}

	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditTwoFactorDisabled, AccountID: acct.ID, At: s.now()})
	return nil
}

// RegenerateRecoveryCodes replaces the recovery set after a live TOTP code.
func (s *TwoFactorService) RegenerateRecoveryCodes(ctx context.Context, accountID, code string) ([]string, error) {
	if err := s.VerifyCode(ctx, accountID, code); err != nil {
		return nil, err
	}

	codes, fingerprints, err := newRecoveryCodes()
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.Store.RecoveryCodes().ReplaceRecoveryCodes(ctx, accountID, fingerprints, now); err != nil {
		return nil, err
	}

	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditRecoveryRegenerated, AccountID: accountID, At: now})
	return codes, nil
}

func (s *TwoFactorService) Status(ctx context.Context, accountID string) (TwoFactorStatus, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return TwoFactorStatus{}, err
	}

	remaining, err := s.Store.RecoveryCodes().CountUnusedRecoveryCodes(ctx, accountID)
	if err != nil {
		return TwoFactorStatus{}, err
	}

	return TwoFactorStatus{
		Enabled:                acct.TOTPEnabled,
		Pending:                acct.TOTPPendingSecret != nil,
		RemainingRecoveryCodes: remaining,
	}, nil
}

// matchTOTP returns the step a code belongs to within the allowed skew.
func matchTOTP(secret, code string, now time.Time) (int64, bool) {
	code = strings.TrimSpace(code)
	if !looksLikeTOTP(code) {
		return 0, false
	}

	for d := -totpSkew; d <= totpSkew; d++ {
		at := now.Add(time.Duration(d*totpPeriod) * time.Second)
		expected, err := totp.GenerateCodeCustom(secret, at, totpOpts)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return at.Unix() / totpPeriod, true
		}
	}
	return 0, false
}

func looksLikeTOTP(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// newRecoveryCodes returns plaintext codes and their fingerprints.
func newRecoveryCodes() ([]string, []string, error) {
	codes := make([]string, RecoveryCodeCount)
	fingerprints := make([]string, RecoveryCodeCount)
	for i := range RecoveryCodeCount {
		code, err := cryptox.GenerateCode(2, 5)
		if err != nil {
			return nil, nil, fmt.Errorf("generate recovery code: %w", err)
		}
		codes[i] = code
		fingerprints[i] = cryptox.FingerprintToken(cryptox.NormalizeCode(code))
	}
	return codes, fingerprints, nil
}
