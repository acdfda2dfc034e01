package feeds

import (
	"encoding/json"
	"strconv"
	"strings"
)

type object = map[string]any

// accessor reads one candidate location of a logical field from a decoded
// JSON object. Each logical field is an ordered list of accessors; the first
// non-empty match wins.
type accessor func(object) (any, bool)

// key reads a top-level field, matching names through fieldKey so that
// "Bedrooms", "bed_rooms" and "bedrooms" are equivalent.
func key(name string) accessor {
	want := fieldKey(name)
	return func(o object) (any, bool) {
		if v, ok := o[name]; ok && present(v) {
			return v, true
		}
		for k, v := range o {
			if fieldKey(k) == want && present(v) {
				return v, true
			}
		}
		return nil, false
	}
}

func keys(names ...string) []accessor {
	out := make([]accessor, len(names))
	for i, n := range names {
		out[i] = key(n)
	}
	return out
}

// within applies inner to the object found under parent.
func within(parent string, inner accessor) accessor {
	outer := key(parent)
	return func(o object) (any, bool) {
		v, ok := outer(o)
		if !ok {
			return nil, false
		}
		child, ok := asObject(v)
		if !ok {
			return nil, false
		}
		return inner(child)
	}
}

// nestedKeys builds parent.name accessors for every parent/name pair.
func nestedKeys(parents []string, names ...string) []accessor {
	var out []accessor
	for _, p := range parents {
		for _, n := range names {
			out = append(out, within(p, key(n)))
		}
	}
	return out
}

func chain(lists ...[]accessor) []accessor {
	var out []accessor
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func firstValue(o object, accs []accessor) (any, bool) {
	for _, acc := range accs {
		if v, ok := acc(o); ok {
			return v, true
		}
	}
	return nil, false
}

func firstString(o object, accs []accessor) string {
	for _, acc := range accs {
		if v, ok := acc(o); ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstFloat(o object, accs []accessor) (float64, bool) {
	for _, acc := range accs {
		if v, ok := acc(o); ok {
			if f, ok := asFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func firstMeasure(o object, accs []accessor) (float64, bool) {
	for _, acc := range accs {
		if v, ok := acc(o); ok {
			if f, ok := asMeasure(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func firstInt(o object, accs []accessor) *int {
	if f, ok := firstFloat(o, accs); ok {
		v := int(f)
		return &v
	}
	return nil
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

func asObject(v any) (object, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		if len(t) > 0 {
			return asObject(t[0])
		}
	}
	return nil, false
}

// valueKeys are the labels a wrapped scalar is commonly stored under.
var valueKeys = []string{"value", "@value", "amount", "#text", "_", "text", "rendered", "name", "url", "contentUrl", "src", "href", "source_url"}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		for _, k := range valueKeys {
			if s := asString(t[k]); s != "" {
				return s
			}
		}
	case []any:
		for _, item := range t {
			if s := asString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// asMeasure is asFloat for sizes: text goes through parseMeasure.
func asMeasure(v any) (float64, bool) {
	switch t := v.(type) {
	case string:
		return parseMeasure(t)
	case map[string]any:
		for _, k := range []string{"value", "@value", "#text", "_"} {
			if f, ok := asMeasure(t[k]); ok {
				return f, true
			}
		}
		return 0, false
	case []any:
		if len(t) > 0 {
			return asMeasure(t[0])
		}
		return 0, false
	}
	return asFloat(v)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseNumber(t)
	case map[string]any:
		for _, k := range []string{"value", "@value", "amount", "#text", "_", "price"} {
			if f, ok := asFloat(t[k]); ok {
				return f, true
			}
		}
	case []any:
		if len(t) > 0 {
			return asFloat(t[0])
		}
	}
	return 0, false
}

// asStrings flattens strings, delimited strings, arrays and arrays of objects
// into a list; nulls are dropped.
func asStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return splitList(t)
	case []any:
		var out []string
		for _, item := range t {
			switch it := item.(type) {
			case nil:
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			default:
				if s := asString(it); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case map[string]any:
		if s := asString(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

func allStrings(o object, accs []accessor) []string {
	var out []string
	for _, acc := range accs {
		if v, ok := acc(o); ok {
			out = append(out, asStrings(v)...)
		}
	}
	return out
}
