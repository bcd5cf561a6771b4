package token

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/store"
	"github.com/jrsteele09/go-identity-server/users"
)

// Service mints access and identity tokens. Access tokens are either signed
// JWTs or opaque handles backed by the reference token store, selected per
// client. Identity tokens are always JWTs.
type Service struct {
	issuer     string
	signer     Signer
	claims     users.ClaimsProvider
	references store.ReferenceTokenStore
	now        func() time.Time
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithClock sets the clock (primarily for tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithClaimsProvider sets the provider used to enrich tokens with subject
// claims. Without one, tokens carry only the protocol claims.
func WithClaimsProvider(provider users.ClaimsProvider) ServiceOption {
	return func(s *Service) {
		s.claims = provider
	}
}

func NewService(issuer string, signer Signer, references store.ReferenceTokenStore, options ...ServiceOption) (*Service, error) {
	if issuer == "" {
		return nil, errors.New("[NewService] issuer is required")
	}
	if signer == nil {
		return nil, errors.New("[NewService] signer is required")
	}
	if references == nil {
		return nil, errors.New("[NewService] reference token store is required")
	}

	s := &Service{
		issuer:     issuer,
		signer:     signer,
		references: references,
		now:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// AccessTokenRequest describes the access token to mint. Subject is nil when
// the client acts as itself (client_credentials).
type AccessTokenRequest struct {
	Client  *clients.Client
	Subject *users.Principal
	Scopes  []string
}

// CreateAccessToken mints an access token for the request and returns the
// string the bearer will present: the signed JWT, or the opaque handle for
// reference-token clients.
func (s *Service) CreateAccessToken(ctx context.Context, req AccessTokenRequest) (string, error) {
	if req.Client == nil {
		return "", errors.New("[Service.CreateAccessToken] client is required")
	}

	now := s.now()
	audience := strings.TrimSuffix(s.issuer, "/") + "/resources"

	if req.Client.AccessTokenType == oauth2.AccessTokenReference {
		handle := store.NewHandle()
		record := &store.ReferenceToken{
			ClientID:  req.Client.ID,
			Scopes:    req.Scopes,
			Issuer:    s.issuer,
			Audience:  audience,
			CreatedAt: now,
			Lifetime:  req.Client.AccessTokenLifetime,
		}
		if req.Subject != nil {
			record.Subject = *req.Subject
		}
		if err := s.references.Store(ctx, handle, record); err != nil {
			return "", errors.Wrap(err, "[Service.CreateAccessToken] reference store")
		}
		return handle, nil
	}

	claims := jwt.MapClaims{
		"iss":       s.issuer,
		"aud":       audience,
		"client_id": req.Client.ID,
		"scope":     strings.Join(req.Scopes, " "),
		"iat":       now.Unix(),
		"exp":       now.Add(req.Client.AccessTokenLifetime).Unix(),
		"jti":       uuid.NewString(),
	}
	if req.Subject != nil {
		claims["sub"] = req.Subject.Subject
		if err := s.mergeSubjectClaims(ctx, claims, req.Subject, req.Scopes); err != nil {
			return "", err
		}
	}

	signed, err := s.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Service.CreateAccessToken]")
	}
	return signed, nil
}

// IdentityTokenRequest describes the identity token to mint. AccessToken and
// Code, when set, are bound into the token via at_hash and c_hash so the
// relying party can tie the artifacts of one response together.
type IdentityTokenRequest struct {
	Client      *clients.Client
	Subject     *users.Principal
	Scopes      []string
	Nonce       string
	AccessToken string
	Code        string
}

// CreateIdentityToken mints a signed OIDC identity token.
func (s *Service) CreateIdentityToken(ctx context.Context, req IdentityTokenRequest) (string, error) {
	if req.Client == nil {
		return "", errors.New("[Service.CreateIdentityToken] client is required")
	}
	if req.Subject == nil {
		return "", errors.New("[Service.CreateIdentityToken] subject is required")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss":       s.issuer,
		"sub":       req.Subject.Subject,
		"aud":       req.Client.ID,
		"iat":       now.Unix(),
		"exp":       now.Add(req.Client.IdentityTokenLifetime).Unix(),
		"auth_time": req.Subject.AuthTime.Unix(),
		"jti":       uuid.NewString(),
	}
	if req.Nonce != "" {
		claims["nonce"] = req.Nonce
	}
	if req.Subject.IdentityProvider != "" {
		claims["idp"] = req.Subject.IdentityProvider
	}
	if req.Subject.AuthenticationMethod != "" {
		claims["amr"] = []string{req.Subject.AuthenticationMethod}
	}
	if req.AccessToken != "" {
		claims["at_hash"] = LeftHalfHash(req.AccessToken)
	}
	if req.Code != "" {
		claims["c_hash"] = LeftHalfHash(req.Code)
	}
	if err := s.mergeSubjectClaims(ctx, claims, req.Subject, req.Scopes); err != nil {
		return "", err
	}

	signed, err := s.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Service.CreateIdentityToken]")
	}
	return signed, nil
}

// JWKS returns the signer's public key set, or nil for symmetric signers.
func (s *Service) JWKS() *JWKS {
	return s.signer.JWKS()
}

// SigningAlgorithm returns the JWT alg value in use, for the discovery document.
func (s *Service) SigningAlgorithm() string {
	return s.signer.SigningMethod().Alg()
}

// protocolClaims may never be supplied or widened by a claims provider.
var protocolClaims = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "iat": {}, "jti": {},
	"nonce": {}, "auth_time": {}, "at_hash": {}, "c_hash": {},
	"client_id": {}, "scope": {}, "amr": {}, "idp": {},
}

// mergeSubjectClaims folds provider claims into the claim map. Repeated claim
// types (role) become arrays; protocol claims are never overwritten.
func (s *Service) mergeSubjectClaims(ctx context.Context, claims jwt.MapClaims, subject *users.Principal, scopeNames []string) error {
	if s.claims == nil {
		return nil
	}
	provided, err := s.claims.ClaimsFor(ctx, subject, scopeNames)
	if err != nil {
		return errors.Wrap(err, "[Service.mergeSubjectClaims] claims provider")
	}
	for _, claim := range provided {
		if _, reserved := protocolClaims[claim.Type]; reserved {
			continue
		}
		switch existing := claims[claim.Type].(type) {
		case nil:
			claims[claim.Type] = claim.Value
		case string:
			claims[claim.Type] = []string{existing, claim.Value}
		case []string:
			claims[claim.Type] = append(existing, claim.Value)
		}
	}
	return nil
}
