package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-identity-server/oauth2"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// writeJSON encodes a JSON body. Responses default to no-store; handlers
// serving cacheable documents set their own Cache-Control beforehand.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encoding response body")
	}
}

// writeTokenError encodes a token endpoint failure per RFC 6749 §5.2:
// invalid_client gets 401 with a WWW-Authenticate challenge, server faults get
// 500, everything else 400.
func writeTokenError(w http.ResponseWriter, protoErr *oauth2.Error) {
	status := http.StatusBadRequest
	switch {
	case protoErr.Code == oauth2.ErrInvalidClient:
		status = http.StatusUnauthorized
		w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
	case protoErr.IsServerError():
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, oauth2.ErrorResponse{
		Error:            protoErr.Code,
		ErrorDescription: protoErr.Description,
	})
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><title>Error</title></head>
<body>
<h1>Request error</h1>
<p>{{.Code}}{{if .Description}}: {{.Description}}{{end}}</p>
</body>
</html>`))

// renderUserError shows an authorize failure directly to the user. Used for
// every error raised before the redirect target is trusted, and for server
// faults. The untrusted redirect_uri is never touched.
func renderUserError(w http.ResponseWriter, protoErr *oauth2.Error) {
	status := http.StatusBadRequest
	if protoErr.IsServerError() {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := errorPage.Execute(w, protoErr); err != nil {
		log.Error().Err(err).Msg("rendering error page")
	}
}

var formPostPage = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html>
<head><title>Submit this form</title></head>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{- range $name, $values := .Params}}{{range $values}}
<input type="hidden" name="{{$name}}" value="{{.}}"/>
{{- end}}{{end}}
<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>`))

// deliver sends response parameters back to the redirect URI using the chosen
// response mode.
func deliver(w http.ResponseWriter, r *http.Request, redirectURI string, mode oauth2.ResponseModeType, params url.Values) {
	switch mode {
	case oauth2.FormPostResponseMode:
		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		err := formPostPage.Execute(w, struct {
			Action string
			Params url.Values
		}{Action: redirectURI, Params: params})
		if err != nil {
			log.Error().Err(err).Msg("rendering form_post page")
		}
	case oauth2.FragmentResponseMode:
		http.Redirect(w, r, redirectURI+"#"+params.Encode(), http.StatusFound)
	default:
		target, err := url.Parse(redirectURI)
		if err != nil {
			// The URI was validated upstream; failing here is a programming error.
			renderUserError(w, oauth2.NewServerError("invalid redirect target"))
			return
		}
		query := target.Query()
		for name, values := range params {
			for _, value := range values {
				query.Add(name, value)
			}
		}
		target.RawQuery = query.Encode()
		http.Redirect(w, r, target.String(), http.StatusFound)
	}
}

// deliverError sends a trusted authorize failure to the client via the
// validated redirect URI, echoing state.
func deliverError(w http.ResponseWriter, r *http.Request, redirectURI string, mode oauth2.ResponseModeType, state string, protoErr *oauth2.Error) {
	params := url.Values{}
	params.Set(oauth2.ParamError, protoErr.Code)
	if protoErr.Description != "" {
		params.Set(oauth2.ParamErrorDescription, protoErr.Description)
	}
	if state != "" {
		params.Set(oauth2.ParamState, state)
	}
	deliver(w, r, redirectURI, mode, params)
}
