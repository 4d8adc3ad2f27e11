package shared

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that the upstream API may leave out or send as null.
// The zero value is Absent.
type Optional[T any] struct {
	value   T
	present bool
}

// Present wraps a value that is known to exist
func Present[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// Absent returns an Optional with no value
func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a nil-able pointer into an Optional
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Absent[T]()
	}
	return Present(*p)
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value is held
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the held value or def when absent
func (o Optional[T]) OrElse(def T) T {
	if o.present {
		return o.value
	}
	return def
}

// Ptr returns a pointer to a copy of the value, or nil when absent
func (o Optional[T]) Ptr() *T {
	if !o.present {
		return nil
	}
	v := o.value
	return &v
}

// MarshalJSON encodes Absent as null
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as Absent. A missing key never reaches this
// method and therefore also stays Absent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Absent[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Present(v)
	return nil
}
