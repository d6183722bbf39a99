package model

import (
	"bytes"
	"encoding/json"
)

// Field is a tri-state optional value used in patch structures:
// absent (not supplied), null (explicitly cleared), or set to a value.
// The zero Field is absent.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{present: true, value: v}
}

// Null returns a Field that explicitly clears the target.
func Null[T any]() Field[T] {
	return Field[T]{present: true, null: true}
}

// Present reports whether the field was supplied at all.
func (f Field[T]) Present() bool { return f.present }

// IsNull reports whether the field was supplied as null.
func (f Field[T]) IsNull() bool { return f.present && f.null }

// Value returns the value and whether one is set (present and non-null).
func (f Field[T]) Value() (T, bool) {
	return f.value, f.present && !f.null
}

// Ptr returns a pointer to the value, or nil when the field is null or absent.
func (f Field[T]) Ptr() *T {
	if !f.present || f.null {
		return nil
	}
	v := f.value
	return &v
}

// IsZero lets encoding/json omit absent fields tagged omitzero.
func (f Field[T]) IsZero() bool { return !f.present }

// MarshalJSON encodes null or the value. Absent fields are left to omitzero.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON is only invoked for keys present in the document,
// so reaching it always marks the field present.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(data, &f.value)
}
