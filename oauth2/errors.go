package oauth2

import "fmt"

// Protocol error codes per RFC 6749 / OIDC Core.
const (
	ErrInvalidRequest          = "invalid_request"
	ErrUnauthorizedClient      = "unauthorized_client"
	ErrAccessDenied            = "access_denied"
	ErrUnsupportedResponseType = "unsupported_response_type"
	ErrInvalidScope            = "invalid_scope"
	ErrInvalidGrant            = "invalid_grant"
	ErrInvalidClient           = "invalid_client"
	ErrUnsupportedGrantType    = "unsupported_grant_type"
	ErrServerError             = "server_error"
)

// ErrorType says where an authorize-endpoint error may be delivered. Until the
// client and its redirect_uri have both been verified, an error must be shown to
// the user directly; redirecting it would hand an attacker an open redirect.
type ErrorType int

const (
	// ErrorTypeUser errors are rendered to the user; the redirect target is not
	// trusted at the point they occur.
	ErrorTypeUser ErrorType = iota

	// ErrorTypeClient errors may be delivered to the client via redirect, the
	// client + redirect_uri pairing having already been validated.
	ErrorTypeClient
)

// Error is the typed result every validator returns for protocol-level failures.
// Validators never return plain errors for protocol problems; plain errors are
// reserved for infrastructure faults (which surface as server_error).
type Error struct {
	Type        ErrorType
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewUserError creates an error that must be rendered directly to the user.
func NewUserError(code, description string) *Error {
	return &Error{Type: ErrorTypeUser, Code: code, Description: description}
}

// NewClientError creates an error that is safe to deliver via redirect.
func NewClientError(code, description string) *Error {
	return &Error{Type: ErrorTypeClient, Code: code, Description: description}
}

// NewServerError wraps an infrastructure fault. It is deliberately distinct from
// invalid_grant so that a flaky store never masquerades as a revoked token.
func NewServerError(description string) *Error {
	return &Error{Type: ErrorTypeUser, Code: ErrServerError, Description: description}
}

// IsServerError reports whether the error represents an infrastructure fault
// rather than a protocol violation.
func (e *Error) IsServerError() bool {
	return e.Code == ErrServerError
}
