package models

import (
	"bytes"
	"encoding/json"
)

// Optional is a tri-state JSON field: absent, explicit null, or a value.
// A value that cannot be decoded into T marks the field Invalid instead of
// failing the whole document, so it can be reported per field.
type Optional[T any] struct {
	Value   T
	Set     bool
	Null    bool
	Invalid bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns an Optional that was explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports whether the field carries a usable value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null && !o.Invalid
}

// Or returns the value when present, fallback otherwise.
func (o Optional[T]) Or(fallback T) T {
	if o.Present() {
		return o.Value
	}
	return fallback
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		o.Invalid = true
		return nil
	}
	o.Value = v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
