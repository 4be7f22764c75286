// Package query holds the serialization helpers and the result cache shared
// by every hook bound to a Provider.
package query

import (
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	wkerrors "github.com/DeBrosOfficial/walletkit/pkg/errors"
)

// Serializer converts cached values to and from their persisted form.
type Serializer interface {
	Serialize(v any) (string, error)
	Deserialize(s string, out any) error
}

// JSONSerializer is the default Serializer.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) (string, error) { return Serialize(v) }

func (JSONSerializer) Deserialize(s string, out any) error { return Deserialize(s, out) }

// Serialize encodes v as JSON. Function and channel values cannot be
// represented and are dropped instead of failing the whole value. Big
// integers are written as exact decimal numbers.
func Serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		var ute *json.UnsupportedTypeError
		if !errors.As(err, &ute) {
			return "", wkerrors.Wrap(err, "serialize")
		}
		b, err = json.Marshal(prune(addressable(reflect.ValueOf(v))))
		if err != nil {
			return "", wkerrors.Wrap(err, "serialize")
		}
	}
	return string(b), nil
}

// Deserialize decodes s into out. When out holds untyped values, numbers are
// kept as json.Number so large integers are not truncated to float64.
func Deserialize(s string, out any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return wkerrors.Wrap(err, "deserialize")
	}
	return nil
}

// Key builds a deterministic cache key from parameter values, so two
// parameter sets that are equal by value produce the same key.
func Key(parts ...any) string {
	s, err := Serialize(parts)
	if err != nil {
		// Unserializable parameters still need a stable, distinct key.
		var buf bytes.Buffer
		for _, p := range parts {
			fmt.Fprintf(&buf, "%T=%v;", p, p)
		}
		return buf.String()
	}
	return s
}

var (
	jsonMarshaler = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshaler = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

func unsupported(k reflect.Kind) bool {
	return k == reflect.Func || k == reflect.Chan || k == reflect.UnsafePointer || k == reflect.Complex64 || k == reflect.Complex128
}

func addressable(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.CanAddr() {
		return v
	}
	pv := reflect.New(v.Type())
	pv.Elem().Set(v)
	return pv.Elem()
}

// prune rebuilds v as plain maps and slices, honouring json field tags and
// skipping values encoding/json cannot represent.
func prune(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if unsupported(v.Kind()) {
		return nil
	}
	if v.Type().Implements(jsonMarshaler) || v.Type().Implements(textMarshaler) {
		return v.Interface()
	}
	if v.CanAddr() && (v.Addr().Type().Implements(jsonMarshaler) || v.Addr().Type().Implements(textMarshaler)) {
		return v.Addr().Interface()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return prune(v.Elem())
	case reflect.Struct:
		out := make(map[string]any)
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || unsupported(f.Type.Kind()) {
				continue
			}
			name, omitEmpty, skip := jsonName(f)
			if skip {
				continue
			}
			fv := v.Field(i)
			if omitEmpty && fv.IsZero() {
				continue
			}
			if f.Anonymous && name == f.Name {
				if m, ok := prune(fv).(map[string]any); ok {
					for k, val := range m {
						if _, exists := out[k]; !exists {
							out[k] = val
						}
					}
					continue
				}
			}
			out[name] = prune(fv)
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if unsupported(v.Type().Elem().Kind()) {
			return map[string]any{}
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, err := Serialize(iter.Key().Interface())
			if err != nil {
				continue
			}
			out[strings.Trim(key, `"`)] = prune(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = prune(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}

func jsonName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	if tag != "" {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitEmpty = true
			}
		}
	}
	return name, omitEmpty, false
}
