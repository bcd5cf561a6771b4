// Package server is the HTTP boundary: it parses requests, hands them to the
// validators and generators, and encodes their results onto the wire. No
// protocol decisions live here.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-identity-server/federation"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/response"
	"github.com/jrsteele09/go-identity-server/scopes"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/validation"
)

// Deps are the collaborators the server wires together. All but Federated and
// Sessions are required.
type Deps struct {
	Config config.Config
	Scopes scopes.Repo

	AuthorizeValidator *validation.AuthorizeRequestValidator
	ClientValidator    *validation.ClientValidator
	TokenValidator     *validation.TokenRequestValidator

	AuthorizeGenerator *response.AuthorizeResponseGenerator
	TokenGenerator     *response.TokenResponseGenerator

	Tokens  *token.Service
	Revoker *token.Revoker

	// Sessions resolves the signed-in subject for browser requests. When nil,
	// the authorize endpoint sends every request to the login page.
	Sessions SessionManager

	// Federated holds the upstream identity providers, if any.
	Federated *federation.Registry
}

type Server struct {
	router chi.Router
	deps   Deps
	issuer string

	// externalFlows parks upstream login state between redirect and callback.
	externalFlows *gocache.Cache
}

func New(deps Deps) (*Server, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("[server.New] config is required")
	case deps.Scopes == nil:
		return nil, errors.New("[server.New] scope registry is required")
	case deps.AuthorizeValidator == nil || deps.ClientValidator == nil || deps.TokenValidator == nil:
		return nil, errors.New("[server.New] validators are required")
	case deps.AuthorizeGenerator == nil || deps.TokenGenerator == nil:
		return nil, errors.New("[server.New] response generators are required")
	case deps.Tokens == nil:
		return nil, errors.New("[server.New] token service is required")
	case deps.Revoker == nil:
		return nil, errors.New("[server.New] revoker is required")
	}

	s := &Server{
		deps:          deps,
		issuer:        deps.Config.GetIssuer(),
		externalFlows: gocache.New(10*time.Minute, time.Minute),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get(RouteAuthorize, s.Authorize())
	r.Post(RouteAuthorize, s.Authorize())
	r.Post(RouteToken, s.Token())
	r.Post(RouteRevocation, s.Revoke())

	r.Get(RouteDiscovery, s.Discovery())
	r.Get(RouteJWKS, s.JWKS())

	if s.deps.Federated != nil {
		r.Get(RouteExternalLogin, s.ExternalLogin())
		r.Get(RouteExternalCallback, s.ExternalCallback())
		r.Post(RouteExternalCallback, s.ExternalCallback())
	}

	r.Get(RouteHealth, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
