package utils

import (
	"encoding/json"
	"testing"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "(empty)"},
		{"short key", "sk-ant-123", "****"},
		{"normal key", "sk-ant-api123456789abcdef", "sk-ant-a...cdef"},
		{"long key", "sk-ant-REDACTED", "sk-ant-a...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskKey(tt.input)
			if result != tt.expected {
				t.Errorf("MaskKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMaskBearer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bearer header", "Bearer eyJhbGciOiJSUzI1NiJ9.payload", "Bearer eyJhbGci...load"},
		{"short bearer", "Bearer abc", "Bearer ****"},
		{"no prefix", "abc", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskBearer(tt.input)
			if result != tt.expected {
				t.Errorf("MaskBearer(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"alice@example.com", "a***@example.com"},
		{"@example.com", "****"},
		{"not-an-email", "****"},
	}

	for _, tt := range tests {
		if got := MaskEmail(tt.input); got != tt.expected {
			t.Errorf("MaskEmail(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestMarshalBody(t *testing.T) {
	raw := json.RawMessage(`{"a":1}`)
	if got, _ := MarshalBody(raw); string(got) != `{"a":1}` {
		t.Errorf("raw message changed: %s", got)
	}
	if got, _ := MarshalBody(nil); got != nil {
		t.Errorf("nil payload should marshal to nil, got %q", got)
	}
	got, err := MarshalBody(map[string]string{"name": "<guard>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"name":"<guard>"}` {
		t.Errorf("unexpected body %s", got)
	}
}
