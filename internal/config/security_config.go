package config

type SecurityConfig interface {
	// GetSigningSecret is the HMAC secret used when no key pair is configured.
	GetSigningSecret() string

	// GetSigningKeyID names the active signing key in the JWKS.
	GetSigningKeyID() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSigningSecret() string {
	return GetEnv("SIGNING_SECRET", "")
}

func (Security) GetSigningKeyID() string {
	return GetEnv("SIGNING_KEY_ID", "default")
}
