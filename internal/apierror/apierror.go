// Package apierror defines the uniform error shape surfaced by the console client.
//
// DESIGN: Every failure that reaches a caller is an *Error carrying the same
// fields the backend uses in its error envelope:
//
//	{ "error": { "type", "message", "statusCode", "timestamp", "suggestions" } }
//
// Errors built from backend responses keep the backend's values verbatim.
// Errors synthesized locally (transport failures, identity provider failures,
// client-side validation) use the Type constants below.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// =============================================================================
// TYPES
// =============================================================================

// Wire values for Error.Type.
const (
	TypeAuthentication = "AUTHENTICATION_ERROR"
	TypeAuthorization  = "AUTHORIZATION_ERROR"
	TypeValidation     = "VALIDATION_ERROR"
	TypeTransport      = "TRANSPORT_ERROR"
	TypeUnknown        = "UNKNOWN_ERROR"
)

// DefaultSuggestion is attached to synthesized errors.
const DefaultSuggestion = "Please try again later"

// Kind classifies an error into the client taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "AuthenticationError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindValidation:
		return "ValidationError"
	case KindTransport:
		return "TransportError"
	default:
		return "UnknownError"
	}
}

// Sentinel causes callers can match with errors.Is.
var (
	// ErrUnauthenticated means the operation needs a signed-in principal.
	ErrUnauthenticated = errors.New("no authenticated user")

	// ErrDisplayNameNotSet marks a signup whose account was created but whose
	// display name could not be stored.
	ErrDisplayNameNotSet = errors.New("display name not set")
)

// Error is the uniform error object.
type Error struct {
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	StatusCode  int       `json:"statusCode"`
	Timestamp   time.Time `json:"timestamp"`
	Suggestions []string  `json:"suggestions,omitempty"`

	kind  Kind
	cause error
}

// Envelope is the backend's error response body.
type Envelope struct {
	Error *Error `json:"error"`
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the taxonomy entry for the error.
// An explicit kind wins; otherwise it is derived from Type and StatusCode.
func (e *Error) Kind() Kind {
	if e.kind != KindUnknown {
		return e.kind
	}
	switch e.Type {
	case TypeAuthentication:
		return KindAuthentication
	case TypeAuthorization:
		return KindAuthorization
	case TypeValidation:
		return KindValidation
	case TypeTransport:
		return KindTransport
	}
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return KindAuthorization
	}
	return KindUnknown
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// New creates an error of the given type with the current timestamp.
func New(typ, message string) *Error {
	return &Error{
		Type:      typ,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Authentication wraps an identity provider failure.
func Authentication(cause error) *Error {
	msg := "authentication failed"
	if cause != nil {
		msg = cause.Error()
	}
	e := New(TypeAuthentication, msg)
	e.StatusCode = http.StatusUnauthorized
	e.kind = KindAuthentication
	e.cause = cause
	return e
}

// Unauthenticated reports that no principal is signed in.
func Unauthenticated() *Error {
	e := Authentication(ErrUnauthenticated)
	e.Suggestions = []string{"Sign in and try again"}
	return e
}

// Validation reports a client-side input violation. The request is never sent.
func Validation(field, message string) *Error {
	e := New(TypeValidation, message)
	e.StatusCode = http.StatusBadRequest
	e.kind = KindValidation
	if field != "" {
		e.Suggestions = []string{"Check the " + field + " field"}
	}
	return e
}

// FromTransport synthesizes an error for a request that produced no usable response.
// statusCode is 0 when the transport layer never saw one.
func FromTransport(cause error, statusCode int) *Error {
	msg := "An unexpected error occurred"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	e := New(TypeUnknown, msg)
	e.StatusCode = statusCode
	if e.StatusCode == 0 {
		e.StatusCode = http.StatusInternalServerError
		e.kind = KindTransport
	}
	e.Suggestions = []string{DefaultSuggestion}
	e.cause = cause
	return e
}

// Wrap attaches a cause to e and returns e.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// =============================================================================
// HELPERS
// =============================================================================

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf classifies any error. Errors outside the taxonomy are KindUnknown.
func KindOf(err error) Kind {
	if apiErr, ok := As(err); ok {
		return apiErr.Kind()
	}
	return KindUnknown
}

// StatusCode returns the status code carried by err, or 0.
func StatusCode(err error) int {
	if apiErr, ok := As(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

// Message returns a human-readable message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := As(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
