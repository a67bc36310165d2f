package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/unicode/norm"
)

// ErrNotJSON is returned for values with no JSON rendering: byte strings
// and non-finite numbers.
var ErrNotJSON = errors.New("value has no JSON representation")

// MarshalJSON renders v as canonical JSON (RFC 8785 key order, NFC
// strings, no HTML escaping). Unit renders as null.
//
// Byte strings and non-finite numbers fail with ErrNotJSON; hydration of
// such values succeeds, only this conversion does not.
func MarshalJSON(v Value) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return nil, fmt.Errorf("nil value")
	case Unit:
		return []byte("null"), nil
	case Boolean:
		if v {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Number:
		if !v.IsFinite() {
			return nil, fmt.Errorf("number %s: %w", v, ErrNotJSON)
		}
		return []byte(v.String()), nil
	case ByteString:
		return nil, fmt.Errorf("byte string: %w", ErrNotJSON)
	case TextString:
		return marshalCanonicalString(string(v))
	case List:
		return marshalCanonicalList(v)
	case Record:
		return marshalCanonicalRecord(v)
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string.
//
// RFC 8785 compliance:
//   - No HTML escaping (<, >, & are NOT escaped)
//   - U+2028 and U+2029 are NOT escaped
//   - Only control characters, backslash and quote are escaped
func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at serialization boundary
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline.
	result := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters, leaving \\u2028 (an escaped
// backslash followed by text) alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			out = append(out, data[i])
			continue
		}
		// Every backslash starts an escape sequence; copy it whole.
		if i+5 < len(data) && data[i+1] == 'u' && string(data[i+2:i+5]) == "202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
		if i+1 < len(data) {
			out = append(out, data[i+1])
			i++
		}
	}
	return out
}

func marshalCanonicalList(l List) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalJSON(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := MarshalJSON(r[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON document into a Value.
//
// Numbers are kept exact, null becomes Unit. Strings are NFC normalized.
func UnmarshalJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid JSON: trailing data")
	}
	return fromJSON(raw)
}

func fromJSON(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Unit{}, nil
	case bool:
		return Boolean(v), nil
	case json.Number:
		return ParseNumber(v.String())
	case string:
		return TextString(norm.NFC.String(v)), nil
	case []any:
		l := make(List, len(v))
		for i, elem := range v {
			val, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = val
		}
		return l, nil
	case map[string]any:
		r := make(Record, len(v))
		for k, elem := range v {
			val, err := fromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			r[norm.NFC.String(k)] = val
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", raw)
	}
}
