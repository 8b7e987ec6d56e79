package store

import (
	"context"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/domain"
	"github.com/aussiebroadwan/kubarr/pkg/jwtx"
)

// KeyStoreAdapter exposes the signing key repository as a jwtx.KeyStore.
type KeyStoreAdapter struct {
	keys SigningKeys
}

func NewKeyStoreAdapter(s Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{keys: s.SigningKeys()}
}

func (a *KeyStoreAdapter) ListActiveSigningKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.keys.ListActiveSigningKeys(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]jwtx.SigningKeyRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, jwtx.SigningKeyRecord(k))
	}
	return out, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	return a.keys.CreateSigningKey(ctx, domain.SigningKey(rec))
}

func (a *KeyStoreAdapter) RetireSigningKey(ctx context.Context, kid string, at time.Time) error {
	return a.keys.RetireSigningKey(ctx, kid, at)
}

var _ jwtx.KeyStore = (*KeyStoreAdapter)(nil)
