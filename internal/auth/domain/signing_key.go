package domain

import "time"

// SigningKey is a JWT signing key stored encrypted at rest.
type SigningKey struct {
	ID                  string     // ULID
	Kid                 string     // key identifier in JWKS, e.g. "kubarr-abc123"
	Algorithm           string     // RS256
	PrivateKeyEncrypted []byte     // AES-256-GCM sealed PKCS1 PEM
	CreatedAt           time.Time
	RetiredAt           *time.Time // nil while the key is in rotation
}
