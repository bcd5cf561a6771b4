package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/validation"
)

// extractClientCredentials pulls the caller's credentials from the request:
// HTTP Basic takes precedence over POST body parameters. Basic credentials are
// form-urlencoded per RFC 6749 before being base64'd, so they are decoded here.
func extractClientCredentials(r *http.Request) validation.ClientCredentials {
	if id, secret, ok := r.BasicAuth(); ok {
		if decodedID, err := url.QueryUnescape(id); err == nil {
			id = decodedID
		}
		if decodedSecret, err := url.QueryUnescape(secret); err == nil {
			secret = decodedSecret
		}
		return validation.ClientCredentials{ID: id, Secret: secret, Method: "client_secret_basic"}
	}

	id := r.PostFormValue(oauth2.ParamClientID)
	secret := r.PostFormValue(oauth2.ParamClientSecret)
	method := "client_secret_post"
	if secret == "" {
		method = "none"
	}
	return validation.ClientCredentials{ID: id, Secret: secret, Method: method}
}
