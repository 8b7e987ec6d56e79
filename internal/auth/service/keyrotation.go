package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/internal/auth/store"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
)

// KeyRotationService rotates the JWT signing keys at runtime.
//
// In ephemeral mode (Persistent == false) keys live in the KeyManager only.
// In persistent mode the KeyManager writes new keys to the store itself and
// retires the ones that fall out of the retention window.
type KeyRotationService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Persistent bool
	Audit      AuditSink
	Metrics    *metrics.Metrics // optional
	Now        func() time.Time
}

// RotateKeyResponse is the result of a rotation.
type RotateKeyResponse struct {
	Kid        string   `json:"kid"`
	ActiveKids []string `json:"active_kids"`
}

// RotateKey makes a fresh key current. The previous key keeps verifying.
func (s *KeyRotationService) RotateKey(ctx context.Context) (RotateKeyResponse, error) {
	signer, err := s.KeyManager.Rotate(ctx)
	if err != nil {
		return RotateKeyResponse{}, fmt.Errorf("rotate signing key: %w", err)
	}

	if s.Metrics != nil {
		s.Metrics.KeyRotations.Inc()
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	auditOrNop(s.Audit).Record(ctx, AuditEvent{Type: AuditSigningKeyRotated, At: now})

	return RotateKeyResponse{Kid: signer.KID(), ActiveKids: s.KeyManager.KIDs()}, nil
}

// ListSigningKeys returns every key with its status. Ephemeral keys only
// carry their kid.
func (s *KeyRotationService) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	if s.Persistent {
		keys, err := s.Store.SigningKeys().ListAllSigningKeys(ctx)
		if err != nil {
			return nil, err
		}
		for i := range keys {
			keys[i].PrivateKeyEncrypted = nil
		}
		return keys, nil
	}

	kids := s.KeyManager.KIDs()
	keys := make([]domain.SigningKey, len(kids))
	for i, kid := range kids {
		keys[len(kids)-1-i] = domain.SigningKey{Kid: kid, Algorithm: s.KeyManager.Algorithm()}
	}
	return keys, nil
}
