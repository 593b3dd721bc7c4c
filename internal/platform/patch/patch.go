// Package patch models partial-update payloads: every field records whether
// the client sent it, so absent fields are left untouched and an explicit
// null can clear a value.
package patch

import (
	"encoding/json"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
)

// Field is one optional member of a patch document.
type Field[T any] struct {
	Set   bool
	Value *T
}

// Of returns a Field carrying v, for building patches in code.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Null returns a Field that clears the target.
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		f.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// Apply copies the field into a nullable destination.
func (f Field[T]) Apply(dst **T) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		*dst = nil
		return
	}
	v := *f.Value
	*dst = &v
}

// ApplyValue copies the field into a value destination; null stores the zero
// value.
func (f Field[T]) ApplyValue(dst *T) {
	if !f.Set {
		return
	}
	var zero T
	if f.Value == nil {
		*dst = zero
		return
	}
	*dst = *f.Value
}

// ApplyRequired is ApplyValue for columns that cannot be null.
func (f Field[T]) ApplyRequired(dst *T, name string) error {
	if f.Set && f.Value == nil {
		return apperr.Validation(name, "may not be null")
	}
	f.ApplyValue(dst)
	return nil
}
