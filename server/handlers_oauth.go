package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-identity-server/internal/metrics"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/users"
)

// Authorize handles the authorization endpoint. GET and POST are equivalent;
// parameters come from the query or the form body.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			renderUserError(w, oauth2.NewUserError(oauth2.ErrInvalidRequest, "malformed request"))
			return
		}
		params := r.Form

		req, protoErr := s.deps.AuthorizeValidator.Validate(r.Context(), params)
		if protoErr != nil {
			s.authorizeError(w, r, params, protoErr)
			return
		}

		subject, err := s.resolveSubject(r)
		if err != nil {
			metrics.ServerErrors.WithLabelValues("authorize").Inc()
			renderUserError(w, oauth2.NewServerError("session lookup failed"))
			return
		}
		if subject == nil {
			s.redirectToLogin(w, r)
			return
		}

		resp, protoErr := s.deps.AuthorizeGenerator.Generate(r.Context(), req, subject)
		if protoErr != nil {
			// Generator failures are infrastructure faults; render, never redirect.
			metrics.ServerErrors.WithLabelValues("authorize").Inc()
			renderUserError(w, protoErr)
			return
		}

		metrics.AuthorizationsIssued.WithLabelValues(string(req.ResponseType)).Inc()
		deliver(w, r, resp.RedirectURI, resp.ResponseMode, resp.Params())
	}
}

// authorizeError routes a validation failure to the right surface: client
// errors travel back on the already-validated redirect_uri, everything else is
// rendered to the user.
func (s *Server) authorizeError(w http.ResponseWriter, r *http.Request, params url.Values, protoErr *oauth2.Error) {
	if protoErr.IsServerError() {
		metrics.ServerErrors.WithLabelValues("authorize").Inc()
	} else {
		metrics.ValidationFailures.WithLabelValues("authorize", protoErr.Code).Inc()
	}

	if protoErr.Type != oauth2.ErrorTypeClient {
		renderUserError(w, protoErr)
		return
	}

	// A Client-typed error means the validator already verified the client and
	// its redirect_uri, so the raw values are safe to deliver to.
	redirectURI := params.Get(oauth2.ParamRedirectURI)
	responseType, _ := oauth2.ParseResponseType(params.Get(oauth2.ParamResponseType))
	mode := oauth2.ResponseModeType(params.Get(oauth2.ParamResponseMode))
	if !oauth2.ResponseModeAllowed(mode, responseType) {
		mode = oauth2.DefaultResponseMode(responseType)
	}
	deliverError(w, r, redirectURI, mode, params.Get(oauth2.ParamState), protoErr)
}

func (s *Server) resolveSubject(r *http.Request) (*users.Principal, error) {
	if s.deps.Sessions == nil {
		return nil, nil
	}
	return s.deps.Sessions.Subject(r)
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	returnURL := r.URL.Path
	if r.URL.RawQuery != "" {
		returnURL += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, RouteLogin+"?returnUrl="+url.QueryEscape(returnURL), http.StatusFound)
}

// Token handles the token endpoint for all grant types.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeTokenError(w, oauth2.NewUserError(oauth2.ErrInvalidRequest, "malformed request"))
			return
		}

		client, protoErr := s.deps.ClientValidator.Validate(r.Context(), extractClientCredentials(r))
		if protoErr != nil {
			s.countTokenError(protoErr)
			writeTokenError(w, protoErr)
			return
		}

		req, protoErr := s.deps.TokenValidator.Validate(r.Context(), r.PostForm, client)
		if protoErr != nil {
			s.countTokenError(protoErr)
			writeTokenError(w, protoErr)
			return
		}

		resp, protoErr := s.deps.TokenGenerator.Generate(r.Context(), req)
		if protoErr != nil {
			s.countTokenError(protoErr)
			writeTokenError(w, protoErr)
			return
		}

		metrics.TokensIssued.WithLabelValues(string(req.GrantType)).Inc()
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) countTokenError(protoErr *oauth2.Error) {
	if protoErr.IsServerError() {
		metrics.ServerErrors.WithLabelValues("token").Inc()
		return
	}
	metrics.ValidationFailures.WithLabelValues("token", protoErr.Code).Inc()
}

// Revoke handles RFC 7009 revocation. Once the client is authenticated the
// endpoint always reports success: whether the handle existed, belonged to
// someone else or was already gone is not observable.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeTokenError(w, oauth2.NewUserError(oauth2.ErrInvalidRequest, "malformed request"))
			return
		}

		client, protoErr := s.deps.ClientValidator.Validate(r.Context(), extractClientCredentials(r))
		if protoErr != nil {
			metrics.ValidationFailures.WithLabelValues("revocation", protoErr.Code).Inc()
			writeTokenError(w, protoErr)
			return
		}

		handle := r.PostFormValue(oauth2.ParamToken)
		hint := r.PostFormValue(oauth2.ParamTokenTypeHint)
		if handle == "" || len(handle) > s.deps.Config.GetInputLengths().TokenHandle {
			// Nothing to do; still a success per RFC 7009.
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := s.deps.Revoker.Revoke(r.Context(), client, handle, hint); err != nil {
			metrics.ServerErrors.WithLabelValues("revocation").Inc()
			writeTokenError(w, oauth2.NewServerError("revocation failed"))
			return
		}

		metrics.TokensRevoked.WithLabelValues(hintLabel(hint)).Inc()
		w.WriteHeader(http.StatusOK)
	}
}

func hintLabel(hint string) string {
	switch hint {
	case "access_token", "refresh_token":
		return hint
	}
	return "none"
}
