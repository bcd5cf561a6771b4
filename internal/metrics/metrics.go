// Package metrics exposes the Prometheus instrumentation for the OAuth2
// endpoints. Counters are registered once at package load via promauto and
// incremented from the HTTP boundary only.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensIssued counts successful token issuances by grant type.
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_tokens_issued_total",
		Help: "Successful token issuances by grant type.",
	}, []string{"grant_type"})

	// AuthorizationsIssued counts successful authorize responses by response type.
	AuthorizationsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_authorizations_issued_total",
		Help: "Successful authorization responses by response type.",
	}, []string{"response_type"})

	// ValidationFailures counts protocol-level rejections by endpoint and error
	// code. Server faults are counted separately under ServerErrors.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_validation_failures_total",
		Help: "Protocol validation failures by endpoint and error code.",
	}, []string{"endpoint", "error"})

	// ServerErrors counts infrastructure faults surfaced to callers.
	ServerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_server_errors_total",
		Help: "Infrastructure faults surfaced as server_error, by endpoint.",
	}, []string{"endpoint"})

	// TokensRevoked counts accepted revocation requests by token type hint.
	TokensRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_tokens_revoked_total",
		Help: "Accepted revocation requests by token type hint.",
	}, []string{"hint"})
)
