package utils

import (
	"bytes"
	"encoding/json"
)

// MarshalBody encodes a request payload.
// Raw bytes and json.RawMessage pass through unchanged; a nil payload yields nil.
// Other values are marshalled without HTML escaping so '<' stays '<' on the wire.
func MarshalBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline; remove it for parity with json.Marshal.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
