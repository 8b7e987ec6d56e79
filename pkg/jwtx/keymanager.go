package jwtx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/kubarr/pkg/cryptox"
)

const (
	// MinKeys is current plus previous, enough for a rotation without
	// invalidating tokens signed a moment earlier.
	MinKeys = 2

	maxKeys        = 10
	defaultRSABits = 4096
)

// KeyManager owns the signing keys of one auth instance. The newest key is
// the current signer; older keys stay in the KeySet for verification until
// they fall out of the retention window of NumKeys.
type KeyManager struct {
	KeySet   *KeySet
	Verifier *RS256Verifier

	mu      sync.RWMutex
	signers []Signer // oldest first, last is current

	numKeys int
	rsaBits int
	now     func() time.Time

	// Persistent mode only.
	store  KeyStore
	cipher *cryptox.KeyCipher
}

// KeyManagerOptions configures a KeyManager.
type KeyManagerOptions struct {
	// Issuer is required and checked on every verification.
	Issuer string

	// Audience values required on verification. Empty skips the check since
	// access tokens carry the client id as audience.
	Audience []string

	// RSABits for generated keys, default 4096, minimum 2048.
	RSABits int

	// NumKeys kept for verification, default and minimum MinKeys.
	NumKeys int

	// Now overrides the verification clock.
	Now func() time.Time
}

// NewEphemeralKeyManager generates NumKeys keys in memory. Every token
// becomes invalid when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	km, err := newKeyManager(opts)
	if err != nil {
		return nil, err
	}

	for range km.numKeys {
		signer, _, err := km.generate()
		if err != nil {
			return nil, err
		}
		if err := km.push(signer); err != nil {
			return nil, err
		}
	}
	return km, nil
}

func newKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	numKeys := min(max(opts.NumKeys, MinKeys), maxKeys)
	bits := opts.RSABits
	if bits == 0 {
		bits = defaultRSABits
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	keyset := NewKeySet()
	return &KeyManager{
		KeySet: keyset,
		Verifier: NewVerifierRS256(keyset, VerifyOptions{
			Issuer:   opts.Issuer,
			Audience: opts.Audience,
			Now:      now,
		}),
		numKeys: numKeys,
		rsaBits: bits,
		now:     now,
	}, nil
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string { return AlgorithmRS256 }

// IsReady reports whether a signer is loaded.
func (km *KeyManager) IsReady() bool { return km.Current() != nil }

// Current returns the signer used for new tokens.
func (km *KeyManager) Current() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 0 {
		return nil
	}
	return km.signers[len(km.signers)-1]
}

// Sign signs claims with the current key.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	s := km.Current()
	if s == nil {
		return "", ErrNoKey
	}
	return s.Sign(claims)
}

// NumKeys returns the number of keys currently held.
func (km *KeyManager) NumKeys() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// KIDs lists held key ids, oldest first.
func (km *KeyManager) KIDs() []string {
	km.mu.RLock()
	defer km.mu.RUnlock()

	out := make([]string, 0, len(km.signers))
	for _, s := range km.signers {
		out = append(out, s.KID())
	}
	return out
}

// Rotate generates a new current key. The oldest key beyond NumKeys is
// removed from the KeySet (and retired in the store in persistent mode).
func (km *KeyManager) Rotate(ctx context.Context) (Signer, error) {
	signer, pemData, err := km.generate()
	if err != nil {
		return nil, err
	}

	if km.store != nil {
		if err := km.persist(ctx, signer.KID(), pemData); err != nil {
			return nil, err
		}
	}

	if err := km.push(signer); err != nil {
		return nil, err
	}

	for _, kid := range km.evict() {
		if km.store != nil {
			if err := km.store.RetireSigningKey(ctx, kid, km.now()); err != nil {
				return nil, fmt.Errorf("jwtx: retire key %s: %w", kid, err)
			}
		}
	}
	return signer, nil
}

func (km *KeyManager) push(s Signer) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddSigner(s); err != nil {
		return fmt.Errorf("jwtx: add %s to keyset: %w", s.KID(), err)
	}
	km.signers = append(km.signers, s)
	return nil
}

// evict trims the signer list to numKeys and returns the dropped kids.
func (km *KeyManager) evict() []string {
	km.mu.Lock()
	defer km.mu.Unlock()

	var dropped []string
	for len(km.signers) > km.numKeys {
		old := km.signers[0]
		km.signers = km.signers[1:]
		km.KeySet.Remove(old.KID())
		dropped = append(dropped, old.KID())
	}
	return dropped
}

func (km *KeyManager) generate() (Signer, []byte, error) {
	kid, err := newKeyID()
	if err != nil {
		return nil, nil, err
	}

	pemData, err := cryptox.GenerateRSAKey(km.rsaBits)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtx: generate key: %w", err)
	}

	signer, err := NewSignerRS256(kid, pemData)
	if err != nil {
		return nil, nil, err
	}
	return signer, pemData, nil
}

// newKeyID returns "kubarr-<128 bit token>".
func newKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: generate key id: %w", err)
	}
	return "kubarr-" + token, nil
}
