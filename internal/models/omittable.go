package models

import "encoding/json"

// Omittable is a three-valued optional used in edit payloads for nullable
// fields: absent from the request (no change), present as JSON null (clear
// the field), or present with a value (set it). A plain pointer cannot tell
// the first two apart, and the distinction changes what gets persisted.
type Omittable[T any] struct {
	present bool
	value   *T
}

// OmittableOf builds a present Omittable carrying v.
func OmittableOf[T any](v T) Omittable[T] {
	return Omittable[T]{present: true, value: &v}
}

// OmittableNull builds a present Omittable carrying an explicit null.
func OmittableNull[T any]() Omittable[T] {
	return Omittable[T]{present: true}
}

// Present reports whether the field appeared in the request at all.
func (o Omittable[T]) Present() bool { return o.present }

// Value returns the carried value, or nil for an explicit null or an absent
// field.
func (o Omittable[T]) Value() *T { return o.value }

// UnmarshalJSON is only invoked by encoding/json when the key exists in the
// payload, which is what makes the absent/null distinction observable.
func (o *Omittable[T]) UnmarshalJSON(data []byte) error {
	o.present = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = &v
	return nil
}

// MarshalJSON round-trips the carried value; absent fields marshal as null
// and rely on omitempty at the struct level.
func (o Omittable[T]) MarshalJSON() ([]byte, error) {
	if o.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.value)
}
