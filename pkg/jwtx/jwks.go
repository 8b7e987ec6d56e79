package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// JWK is the public half of a signing key as published on
// /.well-known/jwks.json. Only RSA keys are issued.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS is the document served to relying parties.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

func rsaJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: AlgorithmRS256,
		Kid: kid,
		N:   b64(pub.N.Bytes()),
		E:   b64(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func parseRSAJWK(j JWK) (*rsa.PublicKey, error) {
	switch {
	case j.Kty != "RSA":
		return nil, fmt.Errorf("jwtx: unsupported kty %q", j.Kty)
	case j.Kid == "":
		return nil, errors.New("jwtx: jwk without kid")
	}

	n, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("jwtx: jwk %s modulus: %w", j.Kid, err)
	}
	e, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("jwtx: jwk %s exponent: %w", j.Kid, err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

// PEM renders the key as a PKIX "PUBLIC KEY" block for tooling that does
// not read JWKs.
func (j JWK) PEM() (string, error) {
	pub, err := parseRSAJWK(j)
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("jwtx: marshal %s: %w", j.Kid, err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
