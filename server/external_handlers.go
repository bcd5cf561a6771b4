package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-identity-server/store"
)

// externalFlow is the state parked between redirecting to an upstream provider
// and its callback.
type externalFlow struct {
	Provider  string
	Nonce     string
	ReturnURL string
}

// ExternalLogin starts a sign-in against an upstream provider:
// GET /external/login?idp=<name>&returnUrl=<local path>.
func (s *Server) ExternalLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := s.deps.Federated.Lookup(r.URL.Query().Get("idp"))
		if !ok {
			http.Error(w, "unknown identity provider", http.StatusBadRequest)
			return
		}

		returnURL := r.URL.Query().Get("returnUrl")
		if !localPath(returnURL) {
			returnURL = "/"
		}

		state := store.NewHandle()
		nonce := store.NewHandle()
		s.externalFlows.SetDefault(state, externalFlow{
			Provider:  provider.Name(),
			Nonce:     nonce,
			ReturnURL: returnURL,
		})

		http.Redirect(w, r, provider.AuthCodeURL(state, nonce), http.StatusFound)
	}
}

// ExternalCallback finishes the upstream sign-in: it redeems the callback
// code, verifies the upstream identity token, establishes a local session and
// resumes the original request.
func (s *Server) ExternalCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed callback", http.StatusBadRequest)
			return
		}

		state := r.Form.Get("state")
		entry, found := s.externalFlows.Get(state)
		if state == "" || !found {
			http.Error(w, "unknown or expired login attempt", http.StatusBadRequest)
			return
		}
		s.externalFlows.Delete(state)
		flow := entry.(externalFlow)

		if errCode := r.Form.Get("error"); errCode != "" {
			http.Error(w, "upstream sign-in failed: "+errCode, http.StatusBadRequest)
			return
		}

		provider, ok := s.deps.Federated.Lookup(flow.Provider)
		if !ok {
			http.Error(w, "identity provider no longer configured", http.StatusBadRequest)
			return
		}

		principal, err := provider.Exchange(r.Context(), r.Form.Get("code"), flow.Nonce)
		if err != nil {
			log.Error().Err(err).Str("idp", flow.Provider).Msg("upstream exchange failed")
			http.Error(w, "upstream sign-in failed", http.StatusBadGateway)
			return
		}

		if s.deps.Sessions == nil {
			http.Error(w, "sessions not configured", http.StatusInternalServerError)
			return
		}
		if err := s.deps.Sessions.SignIn(w, r, principal); err != nil {
			http.Error(w, "session creation failed", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, flow.ReturnURL, http.StatusFound)
	}
}

// localPath accepts only same-host relative paths as post-login targets.
func localPath(raw string) bool {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme == "" && parsed.Host == ""
}
