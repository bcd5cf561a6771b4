package validation

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-identity-server/clients"
)

// RedirectURIValidator enforces the exact-match redirect URI policy: a
// requested URI is valid iff it is byte-identical to a registered entry.
// No prefix matching, no wildcard expansion, no normalization: normalizing
// before comparison is exactly how authority-confusion bypasses happen.
type RedirectURIValidator struct{}

func NewRedirectURIValidator() *RedirectURIValidator {
	return &RedirectURIValidator{}
}

// IsValid reports whether the requested URI may be used by the client.
// Malformed URIs are rejected outright, before any comparison: unparseable
// strings, URIs with embedded credentials, empty-host tricks (https:///cb)
// and fragments are all open-redirect or authority-confusion vectors.
func (v *RedirectURIValidator) IsValid(client *clients.Client, requestedURI string) bool {
	if requestedURI == "" || !wellFormedRedirectURI(requestedURI) {
		return false
	}
	for _, registered := range client.RedirectURIs {
		if requestedURI == registered {
			return true
		}
	}
	return false
}

func wellFormedRedirectURI(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !parsed.IsAbs() || parsed.Scheme == "" {
		return false
	}
	// https:/// parses with an empty host; the "authority" the browser would
	// resolve is not the one that was registered.
	if parsed.Host == "" {
		return false
	}
	if parsed.User != nil {
		return false
	}
	if parsed.Fragment != "" || strings.Contains(raw, "#") {
		return false
	}
	return true
}
