// Package omitnilpointers drops unset optional fields from a field map.
package omitnilpointers

import (
	"reflect"
)

// OmitNilPointers returns fields without nil values and with pointers
// dereferenced.
func OmitNilPointers(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if v, ok := deref(value); ok {
			omitted[key] = v
		}
	}

	return omitted
}

func deref(value any) (any, bool) {
	if value == nil {
		return nil, false
	}

	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	return v.Interface(), true
}
