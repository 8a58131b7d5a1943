package firebase

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aiguard/console/internal/identity"
)

// Error is a failure reported by the Identity Toolkit or Secure Token API.
type Error struct {
	Op     string // signIn, signUp, sendOobCode, update, refresh
	Status int
	Code   string // EMAIL_NOT_FOUND, INVALID_PASSWORD, ...
	Detail string
	kind   error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.kind != nil {
		msg = fmt.Sprintf("%s (%s)", e.kind.Error(), e.Code)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return e.Op + ": " + msg
}

// Unwrap exposes the matching identity sentinel, if any.
func (e *Error) Unwrap() error {
	return e.kind
}

// codeKinds maps API error codes onto the identity sentinels.
var codeKinds = map[string]error{
	"EMAIL_NOT_FOUND":                identity.ErrUserNotFound,
	"INVALID_PASSWORD":               identity.ErrInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":      identity.ErrInvalidCredentials,
	"INVALID_EMAIL":                  identity.ErrInvalidCredentials,
	"USER_DISABLED":                  identity.ErrSessionExpired,
	"EMAIL_EXISTS":                   identity.ErrEmailExists,
	"WEAK_PASSWORD":                  identity.ErrWeakPassword,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    identity.ErrTooManyAttempts,
	"TOKEN_EXPIRED":                  identity.ErrSessionExpired,
	"INVALID_REFRESH_TOKEN":          identity.ErrSessionExpired,
	"INVALID_ID_TOKEN":               identity.ErrSessionExpired,
	"USER_NOT_FOUND":                 identity.ErrSessionExpired,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": identity.ErrSessionExpired,
}

// parseError builds an *Error from an error response body.
//
// Both APIs answer with {"error":{"code":400,"message":"CODE : detail"}}.
// The Secure Token API may also answer OAuth style {"error":"invalid_grant"}.
func parseError(op string, status int, body []byte) *Error {
	doc := gjson.ParseBytes(body)
	raw := doc.Get("error.message").String()
	if raw == "" && doc.Get("error").Type == gjson.String {
		raw = strings.ToUpper(doc.Get("error").String())
	}
	if raw == "" {
		raw = fmt.Sprintf("HTTP_%d", status)
	}

	code, detail, _ := strings.Cut(raw, " : ")
	code = strings.TrimSpace(code)
	if code == "INVALID_GRANT" {
		code = "INVALID_REFRESH_TOKEN"
	}
	return &Error{
		Op:     op,
		Status: status,
		Code:   code,
		Detail: strings.TrimSpace(detail),
		kind:   codeKinds[code],
	}
}
