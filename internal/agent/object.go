package agent

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// field is one member of a JSON object, kept in document order.
type field struct {
	key   string
	value json.RawMessage
}

// object is a JSON object decoded lazily with key order preserved. The
// comparison table relies on document order for its columns and rows.
type object []field

func parseObject(raw []byte) (object, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}

	var obj object
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, false
		}
		obj = append(obj, field{key: key, value: v})
	}
	return obj, true
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// raw returns the value at key when present and not null. Later duplicate
// keys win, as in JSON.parse.
func (o object) raw(key string) (json.RawMessage, bool) {
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].key == key {
			if isNull(o[i].value) {
				return nil, false
			}
			return o[i].value, true
		}
	}
	return nil, false
}

func (o object) str(key string) string {
	raw, ok := o.raw(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// text renders a scalar the way a template literal would: strings as-is,
// numbers in shortest form, booleans as true/false.
func (o object) text(key string) (string, bool) {
	raw, ok := o.raw(key)
	if !ok {
		return "", false
	}
	return scalarText(raw)
}

func scalarText(raw json.RawMessage) (string, bool) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return FormatNumber(f), true
		}
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func (o object) num(key string) (float64, bool) {
	raw, ok := o.raw(key)
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// truthy mirrors JavaScript truthiness for a decoded value.
func (o object) truthy(key string) bool {
	raw, ok := o.raw(key)
	if !ok {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true // objects and arrays
	}
}

func (o object) obj(key string) (object, bool) {
	raw, ok := o.raw(key)
	if !ok {
		return nil, false
	}
	return parseObject(raw)
}

func (o object) list(key string) ([]json.RawMessage, bool) {
	raw, ok := o.raw(key)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// strings keeps the string elements of an array and skips the rest.
func (o object) strings(key string) []string {
	items, ok := o.list(key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if isNull(it) {
			continue
		}
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (o object) anyMap(key string) map[string]any {
	raw, ok := o.raw(key)
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// FormatNumber prints f in its shortest round-trip form (45999, 4.5).
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
