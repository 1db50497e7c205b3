package pii

import (
	"bytes"
	"encoding"
	stdjson "encoding/json"
	"fmt"
	"net"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	RedactedPlaceholder = "[REDACTED]"
	CircularPlaceholder = "[CIRCULAR]"
)

// sensitiveKeyPatterns is matched against the full key name. Matching is
// deliberately coarse: "apiKey" and "keyboard" are both redacted.
var sensitiveKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)key`),
	regexp.MustCompile(`(?i)authorization`),
	regexp.MustCompile(`(?i)credit.?card`),
	regexp.MustCompile(`(?i)ssn|social.?security`),
	regexp.MustCompile(`(?i)passport`),
	regexp.MustCompile(`(?i)driver.?license`),
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// scalarTypes encode to JSON strings or numbers and cannot carry keys, so
// they are copied as-is. Any other type with its own encoding is encoded
// and the result is walked.
var scalarTypes = map[reflect.Type]struct{}{
	reflect.TypeFor[time.Time]():      {},
	reflect.TypeFor[stdjson.Number](): {},
	reflect.TypeFor[json.Number]():    {},
	reflect.TypeFor[net.IP]():         {},
}

// IsSensitiveKey reports whether values stored under key must be redacted.
func IsSensitiveKey(key string) bool {
	for _, re := range sensitiveKeyPatterns {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// Sanitize returns a deep copy of value in which every entry whose key
// matches a sensitive pattern is replaced by RedactedPlaceholder, at any
// depth. Maps become map[string]any, slices and arrays become []any and
// exported struct fields are walked under their JSON names. Scalars are
// returned unchanged. The input is never modified.
//
// A container that is reached again while it is still being copied is
// replaced by CircularPlaceholder.
func Sanitize(value any) any {
	w := newWalker()
	return w.walk(reflect.ValueOf(value))
}

// SanitizeMap is Sanitize for metadata maps. A nil map yields an empty map.
func SanitizeMap(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	out, ok := Sanitize(metadata).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return out
}

type visitKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

type walker struct {
	onPath map[visitKey]struct{}
}

func newWalker() *walker {
	return &walker{onPath: make(map[visitKey]struct{})}
}

// enter marks a container as being copied. It returns false when the
// container is already on the current descent path.
func (w *walker) enter(k visitKey) bool {
	if _, seen := w.onPath[k]; seen {
		return false
	}
	w.onPath[k] = struct{}{}
	return true
}

func (w *walker) leave(k visitKey) {
	delete(w.onPath, k)
}

func (w *walker) walk(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
	}
	if v.Kind() == reflect.Interface {
		return w.walk(v.Elem())
	}

	t := v.Type()
	if isScalar(t) || (t.Kind() == reflect.Pointer && isScalar(t.Elem())) {
		return v.Interface()
	}
	if t.Implements(jsonMarshalerType) {
		return w.walkEncoded(v)
	}
	if t.Implements(textMarshalerType) {
		if b, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(b)
		}
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Pointer:
		k := visitKey{typ: t, ptr: v.Pointer()}
		if !w.enter(k) {
			return CircularPlaceholder
		}
		defer w.leave(k)
		return w.walk(v.Elem())

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		k := visitKey{typ: t, ptr: v.Pointer()}
		if !w.enter(k) {
			return CircularPlaceholder
		}
		defer w.leave(k)
		return w.walkMap(v)

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			// Plain bytes encode as base64.
			return v.Interface()
		}
		if v.IsNil() {
			return nil
		}
		k := visitKey{typ: t, ptr: v.Pointer(), len: v.Len()}
		if v.Len() > 0 && !w.enter(k) {
			return CircularPlaceholder
		}
		if v.Len() > 0 {
			defer w.leave(k)
		}
		return w.walkList(v)

	case reflect.Array:
		return w.walkList(v)

	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		w.walkStruct(v, out)
		return out
	}

	return v.Interface()
}

// walkEncoded encodes a json.Marshaler (json.RawMessage included), decodes
// the output and walks the result, so keys produced by custom encoders are
// redacted too. If encoding fails the value is returned unchanged and the
// sink reports it as unserializable.
func (w *walker) walkEncoded(v reflect.Value) any {
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return v.Interface()
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return v.Interface()
	}
	return w.walk(reflect.ValueOf(decoded))
}

func (w *walker) walkMap(v reflect.Value) map[string]any {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key := mapKeyString(iter.Key())
		if IsSensitiveKey(key) {
			out[key] = RedactedPlaceholder
			continue
		}
		out[key] = w.walk(iter.Value())
	}
	return out
}

func (w *walker) walkList(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = w.walk(v.Index(i))
	}
	return out
}

// walkStruct copies exported fields under their JSON names. Untagged
// exported embedded structs are flattened the way encoding/json does.
func (w *walker) walkStruct(v reflect.Value, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, omitEmpty, skip := jsonFieldName(f)
		if skip || !f.IsExported() {
			continue
		}
		fv := v.Field(i)

		if f.Anonymous && f.Tag.Get("json") == "" {
			if flattened := w.walkEmbedded(f, fv, name, out); flattened {
				continue
			}
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		if IsSensitiveKey(name) {
			out[name] = RedactedPlaceholder
			continue
		}
		out[name] = w.walk(fv)
	}
}

func jsonFieldName(f reflect.StructField) (name string, omitEmpty, skip bool) {
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

// walkEmbedded flattens an untagged embedded struct or struct pointer into
// out. It reports false when the field should be copied as a regular field.
func (w *walker) walkEmbedded(f reflect.StructField, fv reflect.Value, name string, out map[string]any) bool {
	ft := f.Type
	if ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	if ft.Kind() != reflect.Struct || isScalar(ft) || f.Type.Implements(jsonMarshalerType) {
		return false
	}
	if f.Type.Kind() != reflect.Pointer {
		w.walkStruct(fv, out)
		return true
	}

	if fv.IsNil() {
		return true
	}
	k := visitKey{typ: f.Type, ptr: fv.Pointer()}
	if !w.enter(k) {
		out[name] = CircularPlaceholder
		return true
	}
	w.walkStruct(fv.Elem(), out)
	w.leave(k)
	return true
}

func isScalar(t reflect.Type) bool {
	_, ok := scalarTypes[t]
	return ok
}

func mapKeyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		if b, err := tm.MarshalText(); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(k.Interface())
}
