package services

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/aiguard/console/internal/apierror"
)

// Limits mirrored from the console forms.
const (
	minLoginPassword  = 6
	minSignupPassword = 8
	passwordSpecials  = "@$!%*?&"

	minProfileName = 2
	maxProfileName = 50

	minProjectName    = 3
	maxProjectName    = 50
	maxProjectDescLen = 200

	maxTokenName     = 100
	minTokenLifetime = 1
	maxTokenLifetime = 365
)

// ValidateEmail checks that email is a single bare address.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return apierror.Validation("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apierror.Validation("email", "Invalid email")
	}
	return nil
}

// ValidateLoginPassword checks the sign-in password length.
func ValidateLoginPassword(password string) error {
	if password == "" {
		return apierror.Validation("password", "Password is required")
	}
	if utf8.RuneCountInString(password) < minLoginPassword {
		return apierror.Validation("password", fmt.Sprintf("Password must be at least %d characters", minLoginPassword))
	}
	return nil
}

// ValidateSignupPassword checks the stricter signup password policy. The
// character classes are ASCII only.
func ValidateSignupPassword(password string) error {
	if password == "" {
		return apierror.Validation("password", "Password is required")
	}
	if utf8.RuneCountInString(password) < minSignupPassword {
		return apierror.Validation("password", fmt.Sprintf("Password must be at least %d characters", minSignupPassword))
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return apierror.Validation("password", "Password must contain uppercase, lowercase, number and special character")
	}
	return nil
}

// ValidateSignupName only requires a name; the length rule applies on the
// profile page.
func ValidateSignupName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apierror.Validation("name", "Name is required")
	}
	return nil
}

// ValidateProfileName checks a display name.
func ValidateProfileName(name string) error {
	return lengthBetween("name", "Name", strings.TrimSpace(name), minProfileName, maxProfileName)
}

// ValidateProjectName checks a project name.
func ValidateProjectName(name string) error {
	return lengthBetween("name", "Project name", strings.TrimSpace(name), minProjectName, maxProjectName)
}

// ValidateProjectDescription checks a project description.
func ValidateProjectDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxProjectDescLen {
		return apierror.Validation("description", fmt.Sprintf("Description must be less than %d characters", maxProjectDescLen))
	}
	return nil
}

// ValidateTokenRequest checks a token creation request.
func ValidateTokenRequest(req CreateTokenRequest) error {
	if err := lengthBetween("name", "Token name", strings.TrimSpace(req.Name), 1, maxTokenName); err != nil {
		return err
	}
	if len(req.Scopes) == 0 {
		return apierror.Validation("scopes", "At least one scope is required")
	}
	for _, s := range req.Scopes {
		if !slices.Contains(TokenScopes, s) {
			return apierror.Validation("scopes", fmt.Sprintf("Unknown scope %q", s))
		}
	}
	if req.ExpiresInDays != 0 && (req.ExpiresInDays < minTokenLifetime || req.ExpiresInDays > maxTokenLifetime) {
		return apierror.Validation("expiresInDays", fmt.Sprintf("Expiry must be between %d and %d days", minTokenLifetime, maxTokenLifetime))
	}
	return nil
}

// ValidateKeyRequest checks a provider key before it is stored.
func ValidateKeyRequest(req AddKeyRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apierror.Validation("name", "Key name is required")
	}
	if err := validateProvider(req.Provider); err != nil {
		return err
	}
	if strings.TrimSpace(req.Key) == "" {
		return apierror.Validation("key", "API key is required")
	}
	return nil
}

// ValidateRole checks an assignable member role. Owner cannot be assigned.
func ValidateRole(role Role) error {
	switch role {
	case RoleAdmin, RoleMember, RoleViewer:
		return nil
	}
	return apierror.Validation("role", fmt.Sprintf("Role must be one of %s, %s, %s", RoleAdmin, RoleMember, RoleViewer))
}

func validateProvider(provider string) error {
	switch provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
		return nil
	}
	return apierror.Validation("provider", fmt.Sprintf("Provider must be one of %s, %s, %s", ProviderOpenAI, ProviderAnthropic, ProviderGoogle))
}

func validateKeyStatus(status KeyStatus) error {
	switch status {
	case KeyActive, KeyInactive:
		return nil
	}
	return apierror.Validation("status", fmt.Sprintf("Status must be %s or %s", KeyActive, KeyInactive))
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return apierror.Validation(field, field+" is required")
	}
	return nil
}

func lengthBetween(field, label, value string, lo, hi int) error {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return apierror.Validation(field, label+" is required")
	case n < lo:
		return apierror.Validation(field, fmt.Sprintf("%s must be at least %d characters", label, lo))
	case n > hi:
		return apierror.Validation(field, fmt.Sprintf("%s must be less than %d characters", label, hi))
	}
	return nil
}
