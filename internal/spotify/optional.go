package spotify

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Optional marks a field the Web API may omit or send as null. Absent and
// null both decode to an invalid Optional, which is distinct from a present
// zero value such as "".
type Optional[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

func (o Optional[T]) OrElse(fallback T) T {
	if !o.Valid {
		return fallback
	}
	return o.Value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value, o.Valid = zero, false
		return nil
	}

	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true

	return nil
}
