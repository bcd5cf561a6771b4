package validation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/validation"
)

func TestRedirectURIValidator(t *testing.T) {
	v := validation.NewRedirectURIValidator()
	client := &clients.Client{
		ID:           "client",
		RedirectURIs: []string{"https://server/cb", "myapp://callback"},
	}

	t.Run("exact match accepted", func(t *testing.T) {
		require.True(t, v.IsValid(client, "https://server/cb"))
		require.True(t, v.IsValid(client, "myapp://callback"))
	})

	t.Run("no normalization before comparison", func(t *testing.T) {
		// Near-misses that loose matching would let through.
		for _, uri := range []string{
			"https://server/cb/",
			"https://server/CB",
			"https://server:443/cb",
			"http://server/cb",
			"https://server/cb?extra=1",
		} {
			require.False(t, v.IsValid(client, uri), uri)
		}
	})

	t.Run("malformed URIs rejected", func(t *testing.T) {
		for _, uri := range []string{
			"",
			"/relative/cb",
			"https:///cb",
			"https://user:pw@server/cb",
			"https://server/cb#fragment",
			"://nonsense",
		} {
			require.False(t, v.IsValid(client, uri), uri)
		}
	})

	t.Run("client with no registered URIs matches nothing", func(t *testing.T) {
		require.False(t, v.IsValid(&clients.Client{ID: "bare"}, "https://server/cb"))
	})
}
