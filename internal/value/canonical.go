package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Canonical encoding of each variant:
//
//	Undefined  {"undefined":true}
//	Integer    42
//	Real       {"real":"1.5"}        reduced decimal text
//	Bool       true
//	Symbol     "x"
//	Var        {"var":"x"}
//	Expr       {"args":[...],"head":"add"}
//	List       [...]
//
// Object keys follow RFC 8785 ordering (UTF-16 code units), strings are NFC
// normalized and HTML characters are not escaped.

// MarshalCanonical produces the canonical JSON encoding of v.
// This is the only serialization used for hashing and for the trace store.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, OrUndefined(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalCanonical is like MarshalCanonical but panics on error.
func MustMarshalCanonical(v Value) []byte {
	data, err := MarshalCanonical(v)
	if err != nil {
		panic(err)
	}
	return data
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Undefined:
		buf.WriteString(`{"undefined":true}`)
	case Integer:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(val.String())
	case Symbol:
		return writeCanonicalString(buf, string(val))
	case Var:
		return writeObject(buf, map[string]func() error{
			"var": func() error { return writeCanonicalString(buf, string(val)) },
		})
	case Real:
		return writeObject(buf, map[string]func() error{
			"real": func() error { return writeCanonicalString(buf, val.canonicalText()) },
		})
	case Expr:
		return writeObject(buf, map[string]func() error{
			"head": func() error { return writeCanonicalString(buf, val.Head) },
			"args": func() error { return writeCanonicalArray(buf, val.Args) },
		})
	case List:
		return writeCanonicalArray(buf, val)
	default:
		return fmt.Errorf("unsupported value type: %T", v)
	}
	return nil
}

func writeCanonicalArray(buf *bytes.Buffer, vals []Value) error {
	buf.WriteByte('[')
	for i, elem := range vals {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, OrUndefined(elem)); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeObject writes fields in RFC 8785 key order.
func writeObject(buf *bytes.Buffer, fields map[string]func() error) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := fields[k](); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeCanonicalString writes an NFC-normalized JSON string without HTML escaping.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	// encoding/json escapes U+2028 and U+2029; RFC 8785 keeps them literal.
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators rewrites \u2028 and \u2029 escapes to the literal
// characters, leaving an escaped backslash followed by "u2028" untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' || i+1 >= len(data) {
			out = append(out, c)
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// Copy other escape pairs whole so an escaped backslash never starts a match.
		out = append(out, c, data[i+1])
		i++
	}
	return out
}

// compareKeysRFC8785 orders strings by UTF-16 code units as RFC 8785 requires.
// Go's native string comparison is by UTF-8 bytes, which differs for
// characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// Unmarshal decodes the canonical encoding produced by MarshalCanonical.
func Unmarshal(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return fromCanonical(raw)
}

func fromCanonical(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a value")
	case bool:
		return Bool(val), nil
	case string:
		return Symbol(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("bare number %s is not an integer (reals use {\"real\": ...})", val)
		}
		return Integer(n), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			v, err := fromCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		return objectFromCanonical(val)
	default:
		return nil, fmt.Errorf("unsupported JSON type: %T", raw)
	}
}

func objectFromCanonical(obj map[string]any) (Value, error) {
	if _, ok := obj["undefined"]; ok {
		return Undefined{}, nil
	}
	if s, ok := obj["var"].(string); ok {
		return Var(s), nil
	}
	if s, ok := obj["real"].(string); ok {
		return NewReal(s)
	}
	head, ok := obj["head"].(string)
	if !ok {
		return nil, fmt.Errorf("object is not a value encoding: keys %v", sortedKeys(obj))
	}
	rawArgs, _ := obj["args"].([]any)
	args := make([]Value, len(rawArgs))
	for i, a := range rawArgs {
		v, err := fromCanonical(a)
		if err != nil {
			return nil, fmt.Errorf("%s.args[%d]: %w", head, i, err)
		}
		args[i] = v
	}
	return Expr{Head: head, Args: args}, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}
