package domain

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a field was present in a partial update, and
// whether it was present as an explicit null.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool  { return o.set }
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// UnmarshalJSON is only invoked for keys present in the payload, which is
// what marks the field as set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	o.null = bytes.Equal(bytes.TrimSpace(data), []byte("null"))

	if o.null {
		var zero T
		o.value = zero
		return nil
	}

	return json.Unmarshal(data, &o.value)
}
