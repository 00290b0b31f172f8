package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ctmflow/internal/ir"
)

// marshalErrors converts engine messages to canonical JSON TEXT for storage.
// A nil slice is stored as "[]".
func marshalErrors(msgs []string) (string, error) {
	if msgs == nil {
		msgs = []string{}
	}
	data, err := ir.MarshalCanonical(msgs)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(data), nil
}

// unmarshalErrors parses the errors column. Empty input yields an empty slice.
func unmarshalErrors(data string) ([]string, error) {
	msgs := []string{}
	if data == "" {
		return msgs, nil
	}
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	return msgs, nil
}
