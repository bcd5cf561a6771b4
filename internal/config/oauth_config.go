package config

import "time"

// OAuthConfig carries protocol-level tunables: default token lifetimes, PKCE
// verifier bounds and the per-parameter input length limits enforced before
// any store lookup (bounding resource use from hostile input).
type OAuthConfig interface {
	GetDefaultAuthorizationCodeLifetime() time.Duration
	GetDefaultAccessTokenLifetime() time.Duration
	GetDefaultIdentityTokenLifetime() time.Duration
	GetDefaultRefreshTokenLifetime() time.Duration
	GetReferenceTokenCleanupInterval() time.Duration

	GetMinCodeChallengeLength() int
	GetMaxCodeChallengeLength() int

	GetInputLengths() InputLengths
}

// InputLengths are the maximum accepted lengths for inbound string parameters.
// Anything longer is rejected before it can drive an unbounded store key.
type InputLengths struct {
	ClientID          int
	ClientSecret      int
	Scope             int
	RedirectURI       int
	State             int
	Nonce             int
	GrantType         int
	UserName          int
	Password          int
	AuthorizationCode int
	RefreshToken      int
	TokenHandle       int
	AcrValues         int
	LoginHint         int
	UILocale          int
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetDefaultAuthorizationCodeLifetime() time.Duration {
	return 5 * time.Minute
}

func (OAuth) GetDefaultAccessTokenLifetime() time.Duration {
	return 1 * time.Hour
}

func (OAuth) GetDefaultIdentityTokenLifetime() time.Duration {
	return 5 * time.Minute
}

func (OAuth) GetDefaultRefreshTokenLifetime() time.Duration {
	return 30 * 24 * time.Hour
}

func (OAuth) GetReferenceTokenCleanupInterval() time.Duration {
	return time.Minute
}

// RFC 7636: verifier and challenge are 43..128 characters.
func (OAuth) GetMinCodeChallengeLength() int { return 43 }
func (OAuth) GetMaxCodeChallengeLength() int { return 128 }

func (OAuth) GetInputLengths() InputLengths {
	return InputLengths{
		ClientID:          100,
		ClientSecret:      100,
		Scope:             300,
		RedirectURI:       400,
		State:             500,
		Nonce:             300,
		GrantType:         100,
		UserName:          100,
		Password:          100,
		AuthorizationCode: 100,
		RefreshToken:      100,
		TokenHandle:       100,
		AcrValues:         300,
		LoginHint:         100,
		UILocale:          100,
	}
}
