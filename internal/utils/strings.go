// Package utils provides common utility functions.
package utils

import "strings"

// MaskKey masks a credential for safe logging (shows first 8 and last 4 chars).
// Use this for provider API keys and personal access tokens.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// MaskBearer masks the credential inside an Authorization header value.
func MaskBearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return MaskKey(header)
	}
	return prefix + MaskKey(strings.TrimPrefix(header, prefix))
}

// MaskEmail hides the local part of an address except its first character.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "****"
	}
	return email[:1] + "***" + email[at:]
}
