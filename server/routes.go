package server

// Route paths. The /connect prefix groups the protocol endpoints, matching the
// paths advertised in the discovery document.
const (
	RouteAuthorize  = "/connect/authorize"
	RouteToken      = "/connect/token"
	RouteRevocation = "/connect/revocation"

	RouteDiscovery = "/.well-known/openid-configuration"
	RouteJWKS      = "/.well-known/jwks.json"

	RouteLogin            = "/login"
	RouteExternalLogin    = "/external/login"
	RouteExternalCallback = "/external/callback"

	RouteHealth = "/healthz"
)
