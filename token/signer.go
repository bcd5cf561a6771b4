// Package token mints and signs the access and identity tokens handed out by
// the token and authorize endpoints. Signing is abstracted behind Signer so
// the same minting code runs against a shared HMAC secret in development and
// an RSA/ECDSA key pair (with JWKS publication) in production.
package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs JWT claims and exposes enough key material for verification.
type Signer interface {
	// Sign creates a signed JWT from the claims.
	Sign(claims jwt.MapClaims) (string, error)

	// VerificationKey returns the key for verifying a parsed token, rejecting
	// tokens whose algorithm does not match the signer's.
	VerificationKey(token *jwt.Token) (any, error)

	// SigningMethod returns the JWT signing method in use.
	SigningMethod() jwt.SigningMethod

	// JWKS returns the public key set, or nil for symmetric signers.
	JWKS() *JWKS
}

// HMACSigner signs with a shared HMAC-SHA256 secret. It publishes no JWKS.
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "[HMACSigner.Sign]")
	}
	return signed, nil
}

func (h *HMACSigner) VerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("[HMACSigner.VerificationKey] unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) SigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

func (h *HMACSigner) JWKS() *JWKS {
	return nil
}

// KeyPairSigner signs with an RSA or ECDSA key pair and stamps the key ID into
// the token header so verifiers can select the key from the published JWKS.
type KeyPairSigner struct {
	keyPair *KeyPair
}

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	return &KeyPairSigner{keyPair: keyPair}
}

func (s *KeyPairSigner) Sign(claims jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(s.keyPair.SigningMethod(), claims)
	t.Header["kid"] = s.keyPair.KeyID

	signed, err := t.SignedString(s.keyPair.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "[KeyPairSigner.Sign]")
	}
	return signed, nil
}

func (s *KeyPairSigner) VerificationKey(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		return s.keyPair.PublicKey, nil
	default:
		return nil, errors.Errorf("[KeyPairSigner.VerificationKey] unexpected signing method: %v", token.Header["alg"])
	}
}

func (s *KeyPairSigner) SigningMethod() jwt.SigningMethod {
	return s.keyPair.SigningMethod()
}

func (s *KeyPairSigner) JWKS() *JWKS {
	jwk, err := s.keyPair.JWK()
	if err != nil {
		return nil
	}
	return &JWKS{Keys: []JWK{*jwk}}
}
