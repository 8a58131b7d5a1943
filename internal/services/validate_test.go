package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSignupPassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"", false},
		{"Ab1!", false},
		{"abcdefg1!", false},
		{"ABCDEFG1!", false},
		{"Abcdefgh!", false},
		{"Abcdefg12", false},
		{"Abcdefg1#", false},
		{"Abcdefg1!", true},
		{"Zz9@zzzzzz", true},
		{"Ééé1@aaaa", false},
		{"ÀBCDEF1@a", true},
		{"Abcdefg٣!", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidateSignupPassword(tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ops@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("ops"))
	assert.Error(t, ValidateEmail("Ops <ops@example.com>"))
}

func TestLengthRules(t *testing.T) {
	assert.Error(t, ValidateLoginPassword("12345"))
	assert.NoError(t, ValidateLoginPassword("123456"))

	assert.NoError(t, ValidateSignupName("B"))
	assert.Error(t, ValidateSignupName("  "))
	assert.Error(t, ValidateProfileName(" A "))
	assert.NoError(t, ValidateProfileName("Al"))
	assert.Error(t, ValidateProfileName(strings.Repeat("n", 51)))

	assert.NoError(t, ValidateProjectName("abc"))
	assert.Error(t, ValidateProjectName(strings.Repeat("p", 51)))
	assert.NoError(t, ValidateProjectDescription(strings.Repeat("d", 200)))
}

func TestValidateTokenRequest(t *testing.T) {
	base := CreateTokenRequest{Name: "ci", Scopes: []string{ScopeAPIRead}}
	assert.NoError(t, ValidateTokenRequest(base))

	unknown := base
	unknown.Scopes = []string{"root"}
	assert.Error(t, ValidateTokenRequest(unknown))

	year := base
	year.ExpiresInDays = 365
	assert.NoError(t, ValidateTokenRequest(year))

	long := base
	long.Name = strings.Repeat("t", 101)
	assert.Error(t, ValidateTokenRequest(long))
}
