// Package grants supports custom/assertion grant types at the token endpoint.
// Each validator is registered under its grant-type string; clients must be
// explicitly authorized for a custom grant by name.
package grants

import (
	"context"
	"net/url"

	"github.com/jrsteele09/go-identity-server/users"
)

// Validator validates a custom grant's parameters and resolves the subject.
// Returning (nil, nil) means the assertion was rejected; a non-nil error
// signals an infrastructure fault.
type Validator interface {
	GrantType() string
	Validate(ctx context.Context, params url.Values) (*users.Principal, error)
}

// Registry holds custom grant validators keyed by grant-type string.
type Registry struct {
	validators map[string]Validator
}

func NewRegistry(validators ...Validator) *Registry {
	r := &Registry{validators: make(map[string]Validator)}
	for _, v := range validators {
		r.validators[v.GrantType()] = v
	}
	return r
}

// Lookup returns the validator for a grant type, if one is registered.
func (r *Registry) Lookup(grantType string) (Validator, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.validators[grantType]
	return v, ok
}
