package common

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// Sanitize converts v into a JSON-encodable value tree in which every
// non-finite float (NaN, +Inf, -Inf) at any depth has been replaced by nil.
// Aggregation over sparse transaction data can legitimately produce
// non-finite intermediates, and encoding/json refuses to marshal them, so
// every payload that leaves the process (HTTP responses, CLI JSON output)
// passes through this single step.
//
// Struct fields are mapped using their json tags, so marshaling the returned
// tree produces the same document as marshaling the input, minus the
// non-finite values.
func Sanitize(v interface{}) interface{} {
	return sanitizeValue(reflect.ValueOf(v))
}

func sanitizeValue(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return sanitizeValue(v.Elem())

	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = sanitizeValue(iter.Value())
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		return sanitizeSequence(v)

	case reflect.Array:
		return sanitizeSequence(v)

	case reflect.Struct:
		// Self-marshaling time types cannot carry floats; pass them through.
		switch t := v.Interface().(type) {
		case time.Time:
			return t
		case Timestamp:
			return t
		}
		return sanitizeStruct(v)

	default:
		return v.Interface()
	}
}

func sanitizeSequence(v reflect.Value) interface{} {
	out := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = sanitizeValue(v.Index(i))
	}
	return out
}

func sanitizeStruct(v reflect.Value) interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" { // unexported
			continue
		}

		name := field.Name
		omitEmpty := false
		if tag, ok := field.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" && len(parts) == 1 {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		} else if field.Anonymous {
			// Untagged embedded struct: flatten, matching encoding/json.
			fv := v.Field(i)
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if inner, ok := sanitizeStruct(fv).(map[string]interface{}); ok {
					for k, val := range inner {
						if _, exists := out[k]; !exists {
							out[k] = val
						}
					}
				}
				continue
			}
		}

		fv := v.Field(i)
		if omitEmpty && isEmptyValue(fv) {
			continue
		}
		out[name] = sanitizeValue(fv)
	}
	return out
}

// isEmptyValue mirrors the emptiness rules of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

// MarshalSanitized is a convenience wrapper that sanitizes v and marshals
// the result. It never fails on non-finite floats.
func MarshalSanitized(v interface{}) ([]byte, error) {
	return json.Marshal(Sanitize(v))
}
