package validation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/scopes"
)

// ScopeValidationResult is the outcome of scope validation: the granted names
// partitioned into identity and resource scope definitions.
type ScopeValidationResult struct {
	Identity []scopes.Scope
	Resource []scopes.Scope

	ContainsOpenID        bool
	ContainsOfflineAccess bool
}

// GrantedNames returns all granted scope names, identity scopes first,
// preserving registry definitions rather than request order.
func (r *ScopeValidationResult) GrantedNames() []string {
	names := make([]string, 0, len(r.Identity)+len(r.Resource))
	for _, s := range r.Identity {
		names = append(names, s.Name)
	}
	for _, s := range r.Resource {
		names = append(names, s.Name)
	}
	return names
}

// IdentityClaimTypes returns the union of claim types released by the granted
// identity scopes.
func (r *ScopeValidationResult) IdentityClaimTypes() []string {
	seen := make(map[string]struct{})
	var claimTypes []string
	for _, s := range r.Identity {
		for _, c := range s.Claims {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			claimTypes = append(claimTypes, c)
		}
	}
	return claimTypes
}

// ScopeValidator checks requested scope names against registry existence and
// per-client restrictions. Stateless: validating the same input twice yields
// identical results.
type ScopeValidator struct {
	registry scopes.Repo
}

func NewScopeValidator(registry scopes.Repo) (*ScopeValidator, error) {
	if registry == nil {
		return nil, errors.New("[NewScopeValidator] scope registry is required")
	}
	return &ScopeValidator{registry: registry}, nil
}

// Validate runs the full scope check for a client and a requested scope set:
//
//  1. every requested name must exist in the registry (invalid_scope),
//  2. every requested name must pass the client's restriction list, a client
//     authorization failure rather than a request-shape failure (invalid_scope),
//  3. granted scopes are partitioned into identity and resource sets,
//  4. offline_access requires a refresh-capable client flow,
//  5. for client_credentials, identity scopes are rejected outright (there is
//     no user to describe).
//
// A non-protocol error return means the registry itself failed.
func (v *ScopeValidator) Validate(ctx context.Context, client *clients.Client, requested []string, grantType oauth2.GrantType) (*ScopeValidationResult, *oauth2.Error, error) {
	known, err := v.registry.GetAll(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[ScopeValidator.Validate] scope registry")
	}

	byName := make(map[string]scopes.Scope, len(known))
	for _, s := range known {
		byName[s.Name] = s
	}

	result := &ScopeValidationResult{}
	for _, name := range requested {
		definition, exists := byName[name]
		if !exists {
			return nil, oauth2.NewClientError(oauth2.ErrInvalidScope, "unknown scope: "+name), nil
		}
		if !client.AllowsScope(name) {
			return nil, oauth2.NewClientError(oauth2.ErrInvalidScope, "scope not allowed for client: "+name), nil
		}

		if definition.IsIdentity() {
			result.Identity = append(result.Identity, definition)
			if name == oauth2.OpenIDScope {
				result.ContainsOpenID = true
			}
			continue
		}
		result.Resource = append(result.Resource, definition)
		if name == oauth2.OfflineAccessScope {
			result.ContainsOfflineAccess = true
		}
	}

	if result.ContainsOfflineAccess && !client.SupportsRefreshTokens() {
		return nil, oauth2.NewClientError(oauth2.ErrInvalidScope, "offline_access not allowed for client flow"), nil
	}

	if grantType == oauth2.ClientCredentialsGrant {
		if len(result.Identity) > 0 {
			return nil, oauth2.NewClientError(oauth2.ErrInvalidScope, "identity scopes not allowed for client_credentials"), nil
		}
		if result.ContainsOfflineAccess {
			return nil, oauth2.NewClientError(oauth2.ErrInvalidScope, "offline_access not allowed for client_credentials"), nil
		}
	}

	return result, nil, nil
}
