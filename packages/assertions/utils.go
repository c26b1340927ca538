package assertions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/abdul-hamid-achik/spyspec/packages/spy"
)

// Utils is the helper bundle handed to plugins at registration time.
type Utils struct {
	// Type returns a coarse kind name: "null", "function", "error",
	// "string", "number", "boolean", "array", "object" or "spy".
	Type func(v any) string
	// Format is fmt.Sprintf with one extra verb: %j renders its argument
	// as compact JSON.
	Format func(template string, args ...any) string
	String func(v any) string
	// Name returns the declared name of a spy or function, or "".
	Name func(v any) string
}

// DefaultUtils returns the standard helper bundle.
func DefaultUtils() Utils {
	return Utils{
		Type:   typeOf,
		Format: format,
		String: stringOf,
		Name:   nameOf,
	}
}

func (u Utils) orDefault() Utils {
	d := DefaultUtils()
	if u.Type == nil {
		u.Type = d.Type
	}
	if u.Format == nil {
		u.Format = d.Format
	}
	if u.String == nil {
		u.String = d.String
	}
	if u.Name == nil {
		u.Name = d.Name
	}
	return u
}

func typeOf(v any) string {
	if v == nil {
		return "null"
	}
	if spy.IsSpyLike(v) {
		return "spy"
	}
	if _, ok := v.(error); ok {
		return "error"
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "null"
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Func:
		return "function"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func stringOf(v any) string {
	if isNil(v) {
		return "nil"
	}
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}

func nameOf(v any) string {
	if isNil(v) {
		return ""
	}
	if n, ok := v.(spy.Named); ok {
		return n.Name()
	}
	if s, ok := spy.Unwrap(v); ok {
		if n, ok := s.(spy.Named); ok {
			return n.Name()
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(rv.Pointer()); fn != nil {
			name := fn.Name()
			if i := strings.LastIndex(name, "/"); i >= 0 {
				name = name[i+1:]
			}
			return name
		}
	}
	return ""
}

// format expands %j verbs into %s with the argument rendered as JSON, then
// hands the result to fmt.Sprintf.
func format(template string, args ...any) string {
	if !strings.Contains(template, "%j") {
		return fmt.Sprintf(template, args...)
	}

	args = append([]any(nil), args...)
	var b strings.Builder
	argIndex := 0
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(template) && template[i+1] == '%' {
			b.WriteString("%%")
			i++
			continue
		}

		// Flags, width and precision, then the verb.
		j := i + 1
		for j < len(template) && strings.IndexByte("+-# 0123456789.*", template[j]) >= 0 {
			if template[j] == '*' {
				argIndex++
			}
			j++
		}
		if j >= len(template) {
			b.WriteString(template[i:])
			break
		}
		if template[j] == 'j' {
			b.WriteString("%s")
			if argIndex < len(args) {
				args[argIndex] = toJSON(args[argIndex])
			}
		} else {
			b.WriteString(template[i : j+1])
		}
		argIndex++
		i = j
	}
	return fmt.Sprintf(b.String(), args...)
}

// toJSON renders v compactly. Errors, matchers and spies are rendered by
// their message, description and name.
func toJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jsonable(v)); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func jsonable(v any) any {
	if isNil(v) {
		return nil
	}
	switch x := v.(type) {
	case spy.Matcher:
		return x.String()
	case error:
		return x.Error()
	case spy.Named:
		if spy.IsSpyLike(x) {
			return x.Name()
		}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonable(e)
		}
		return out
	case [][]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonable(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonable(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func {
		if name := nameOf(v); name != "" {
			return name
		}
		return "function"
	}
	return v
}

// isNil reports whether v is nil or a nil pointer, func or interface. Nil
// slices and maps are left to the JSON encoder.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
