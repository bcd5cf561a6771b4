package config

import (
	"fmt"
	"os"
)

type EnvConfig interface {
	GetPort() string
	GetMetricsPort() string
	GetAppName() string
	GetIssuer() string
	GetRedisAddr() string
	GetRedisDB() int
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv("PORT", "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetMetricsPort() string {
	port := GetEnv("METRICS_PORT", "9090")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv("APP_NAME", "Go Identity Server")
}

// GetIssuer returns the issuer URL stamped into every minted token and
// advertised in the discovery document.
func (EnvVars) GetIssuer() string {
	return GetEnv("ISSUER", "http://localhost:8080")
}

// GetRedisAddr returns the Redis address, or "" to use in-memory stores.
func (EnvVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (EnvVars) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return defaultValue
	}
	return n
}
