package config

// Config aggregates the configuration concerns of the server. Each concern is
// its own interface so components depend only on what they use.
type Config interface {
	EnvConfig
	OAuthConfig
	SecurityConfig
}

type mainConfig struct {
	EnvVars
	OAuth
	Security
}

func New() Config {
	return mainConfig{}
}
