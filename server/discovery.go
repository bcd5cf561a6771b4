package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Discovery serves the OIDC discovery document. Scopes are read from the
// registry on each request so additions show up without a restart.
func (s *Server) Discovery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supportedScopes := []string{}
		registered, err := s.deps.Scopes.GetAll(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("reading scope registry for discovery")
		} else {
			for _, scope := range registered {
				supportedScopes = append(supportedScopes, scope.Name)
			}
		}

		issuer := strings.TrimSuffix(s.issuer, "/")
		doc := map[string]any{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + RouteAuthorize,
			"token_endpoint":         issuer + RouteToken,
			"revocation_endpoint":    issuer + RouteRevocation,
			"jwks_uri":               issuer + RouteJWKS,

			"response_types_supported": []string{
				"code", "token", "id_token", "id_token token",
				"code id_token", "code token", "code id_token token",
			},
			"response_modes_supported": []string{"query", "fragment", "form_post"},
			"grant_types_supported": []string{
				"authorization_code", "client_credentials", "password", "refresh_token",
			},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{s.deps.Tokens.SigningAlgorithm()},
			"scopes_supported":                      supportedScopes,
			"token_endpoint_auth_methods_supported": []string{
				"client_secret_basic", "client_secret_post", "none",
			},
			"code_challenge_methods_supported": []string{"S256", "plain"},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, doc)
	}
}

// JWKS serves the public signing keys. Symmetric deployments have none and
// serve an empty set.
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		keySet := s.deps.Tokens.JWKS()
		if keySet == nil {
			writeJSON(w, http.StatusOK, map[string]any{"keys": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, keySet)
	}
}
