package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
	"github.com/aussiebroadwan/kubarr/pkg/idx"
)

// SigningKeyRecord is a stored signing key. Defined here so jwtx does not
// depend on the store package.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	RetiredAt           *time.Time
}

// KeyStore is the persistence the KeyManager needs in persistent mode.
type KeyStore interface {
	// ListActiveSigningKeys returns non-retired keys, oldest first.
	ListActiveSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
	RetireSigningKey(ctx context.Context, kid string, at time.Time) error
}

// PersistentKeyManagerOptions configures a KeyManager backed by a KeyStore.
type PersistentKeyManagerOptions struct {
	KeyManagerOptions

	Store  KeyStore
	Cipher *cryptox.KeyCipher
}

// NewPersistentKeyManager loads active keys from the store, decrypting them
// with the master key cipher, and tops the set up to NumKeys. Tokens survive
// restarts in this mode.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, errors.New("jwtx: Store is required for persistent key manager")
	}
	if opts.Cipher == nil {
		return nil, errors.New("jwtx: Cipher is required for persistent key manager")
	}

	km, err := newKeyManager(opts.KeyManagerOptions)
	if err != nil {
		return nil, err
	}
	km.store = opts.Store
	km.cipher = opts.Cipher

	records, err := opts.Store.ListActiveSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load signing keys: %w", err)
	}

	for _, rec := range records {
		if rec.Algorithm != AlgorithmRS256 {
			return nil, fmt.Errorf("jwtx: key %s uses unsupported algorithm %q", rec.Kid, rec.Algorithm)
		}

		pemData, err := km.cipher.Decrypt(rec.PrivateKeyEncrypted)
		if err != nil {
			return nil, fmt.Errorf("jwtx: decrypt key %s: %w", rec.Kid, err)
		}

		signer, err := NewSignerRS256(rec.Kid, pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %s: %w", rec.Kid, err)
		}
		if err := km.push(signer); err != nil {
			return nil, err
		}
	}

	for km.NumKeys() < km.numKeys {
		signer, pemData, err := km.generate()
		if err != nil {
			return nil, err
		}
		if err := km.persist(ctx, signer.KID(), pemData); err != nil {
			return nil, err
		}
		if err := km.push(signer); err != nil {
			return nil, err
		}
	}

	// A lowered NumKeys retires the surplus oldest keys.
	for _, kid := range km.evict() {
		if err := km.store.RetireSigningKey(ctx, kid, km.now()); err != nil {
			return nil, fmt.Errorf("jwtx: retire key %s: %w", kid, err)
		}
	}

	return km, nil
}

func (km *KeyManager) persist(ctx context.Context, kid string, pemData []byte) error {
	sealed, err := km.cipher.Encrypt(pemData)
	if err != nil {
		return fmt.Errorf("jwtx: encrypt key %s: %w", kid, err)
	}

	err = km.store.CreateSigningKey(ctx, SigningKeyRecord{
		ID:                  idx.New().String(),
		Kid:                 kid,
		Algorithm:           AlgorithmRS256,
		PrivateKeyEncrypted: sealed,
		CreatedAt:           km.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("jwtx: store key %s: %w", kid, err)
	}
	return nil
}
