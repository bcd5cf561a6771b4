package scopes

import "strings"

// Type distinguishes identity scopes (governing identity-token claims) from
// resource scopes (governing access-token authorization for APIs).
type Type string

const (
	TypeIdentity Type = "identity"
	TypeResource Type = "resource"
)

// Scope is a registered scope definition, owned by the registry and read-only
// to the core.
type Scope struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Type        Type   `json:"type"`

	// Claims lists the claim types released when this scope is granted.
	Claims []string `json:"claims,omitempty"`

	// Emphasize marks scopes a consent UI should highlight.
	Emphasize bool `json:"emphasize,omitempty"`

	// Required scopes cannot be deselected on a consent screen.
	Required bool `json:"required,omitempty"`
}

// IsIdentity reports whether this is an identity scope.
func (s Scope) IsIdentity() bool { return s.Type == TypeIdentity }

// Parse splits a space-delimited scope parameter into its individual names,
// dropping empty tokens and duplicates while preserving order.
func Parse(raw string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, name := range strings.Fields(raw) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Stringify joins scope names back into the wire format.
func Stringify(names []string) string {
	return strings.Join(names, " ")
}

// Standard OIDC scopes, for use when composing a registry.

func OpenID() Scope {
	return Scope{Name: "openid", DisplayName: "Your user identifier", Type: TypeIdentity, Required: true, Claims: []string{"sub"}}
}

func Profile() Scope {
	return Scope{Name: "profile", DisplayName: "User profile", Type: TypeIdentity, Emphasize: true,
		Claims: []string{"name", "given_name", "family_name", "preferred_username", "picture", "updated_at"}}
}

func Email() Scope {
	return Scope{Name: "email", DisplayName: "Your email address", Type: TypeIdentity, Emphasize: true,
		Claims: []string{"email", "email_verified"}}
}

// OfflineAccess is the only resource scope that makes a grant refresh-eligible.
func OfflineAccess() Scope {
	return Scope{Name: "offline_access", DisplayName: "Offline access", Type: TypeResource, Emphasize: true}
}
