package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want Kind
	}{
		{"authentication type", New(TypeAuthentication, "x"), KindAuthentication},
		{"validation helper", Validation("name", "too short"), KindValidation},
		{"backend 401 unknown type", &Error{Type: TypeUnknown, StatusCode: http.StatusUnauthorized}, KindAuthorization},
		{"backend 500", &Error{Type: "INTERNAL", StatusCode: 500}, KindUnknown},
		{"transport without status", FromTransport(errors.New("dial tcp: refused"), 0), KindTransport},
		{"transport with status", FromTransport(errors.New("bad gateway"), 502), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Kind())
		})
	}
}

func TestFromTransport_DefaultsTo500(t *testing.T) {
	err := FromTransport(errors.New("timeout"), 0)
	assert.Equal(t, TypeUnknown, err.Type)
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, []string{DefaultSuggestion}, err.Suggestions)
	assert.False(t, err.Timestamp.IsZero())
}

func TestUnauthenticated_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("update profile: %w", Unauthenticated())
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	assert.Equal(t, KindAuthentication, KindOf(err))
}

func TestAsAndMessage(t *testing.T) {
	wrapped := fmt.Errorf("listing: %w", &Error{Type: "NOT_FOUND", Message: "project missing", StatusCode: 404})

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, 404, StatusCode(wrapped))
	assert.Equal(t, "project missing", Message(wrapped))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}
