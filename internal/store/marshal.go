package store

import (
	"fmt"

	"github.com/roach88/deltasim/internal/value"
)

// marshalValue converts a value to canonical JSON TEXT and its content
// hash. A nil value is stored as undefined.
func marshalValue(v value.Value) (text, hash string, err error) {
	v = value.OrUndefined(v)
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return "", "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), value.HashBytes(value.DomainValue, data), nil
}

// unmarshalValue parses canonical JSON TEXT.
func unmarshalValue(text string) (value.Value, error) {
	v, err := value.Unmarshal([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}
