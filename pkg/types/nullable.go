package types

import (
	"bytes"
	"encoding/json"
)

// Nullable tracks whether a JSON field was present, so PATCH payloads can
// tell "omitted" apart from an explicit null that clears the column.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	n.Set = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	var parsed T
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

// Cleared reports an explicit null.
func (n Nullable[T]) Cleared() bool {
	return n.Set && n.Value == nil
}
