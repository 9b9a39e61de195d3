// Package txjson decodes and formats JSON while keeping object key order and
// number literals exactly as written.
//
// Decoded values are one of: Object, Array, string, json.Number, bool or nil.
package txjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Field is a single key/value pair of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is a JSON object with its keys in document order.
type Object []Field

// Array is a JSON array.
type Array []any

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, f := range o {
		keys[i] = f.Key
	}
	return keys
}

// set replaces the value of an existing key in place, or appends it.
// Repeated keys keep their first position and last value.
func (o Object) set(key string, value any) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Field{Key: key, Value: value})
}

// SyntaxError describes malformed JSON input with a human-readable position.
type SyntaxError struct {
	Msg    string
	Offset int64 // byte offset where the error was detected
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: line %d column %d (char %d)", e.Msg, e.Line, e.Column, e.Offset)
}

// Decode parses exactly one JSON value from data.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeValue(dec)
	if err != nil {
		return nil, syntaxError(data, dec, err)
	}

	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("extra data")
		}
		return nil, syntaxError(data, dec, err)
	}

	return value, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", rune(t))
	default:
		return t, nil
	}
}

func decodeObject(dec *json.Decoder) (Object, error) {
	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, eofAsUnexpected(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expecting property name, got %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj = obj.set(key, value)
	}
	if err := closing(dec, '}'); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (Array, error) {
	arr := Array{}
	for dec.More() {
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, value)
	}
	if err := closing(dec, ']'); err != nil {
		return nil, err
	}
	return arr, nil
}

func closing(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return eofAsUnexpected(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expecting %q, got %v", rune(want), tok)
	}
	return nil
}

func eofAsUnexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func syntaxError(data []byte, dec *json.Decoder, err error) *SyntaxError {
	offset := dec.InputOffset()
	msg := err.Error()

	var jsonErr *json.SyntaxError
	switch {
	case errors.As(err, &jsonErr):
		// Token errors leave the decoder positioned at the offending value.
		msg = strings.TrimPrefix(jsonErr.Error(), "json: ")
	case errors.Is(err, io.ErrUnexpectedEOF):
		offset = int64(len(data))
		msg = "unexpected end of JSON input"
	}

	line, col := position(data, offset)
	return &SyntaxError{Msg: msg, Offset: offset, Line: line, Column: col}
}

// position converts a byte offset into 1-based line and column numbers.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// Format renders v as JSON with ", " and ": " separators, keeping Object key
// order and number literals. Plain Go maps are written with sorted keys.
func Format(v any) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case Object:
		b.WriteByte('{')
		for i, f := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeString(b, f.Key)
			b.WriteString(": ")
			writeValue(b, f.Value)
		}
		b.WriteByte('}')
	case Array:
		writeArray(b, t)
	case []any:
		writeArray(b, t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(keys))
		for _, k := range keys {
			obj = append(obj, Field{Key: k, Value: t[k]})
		}
		writeValue(b, obj)
	case string:
		writeString(b, t)
	case json.Number:
		b.WriteString(t.String())
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			writeString(b, fmt.Sprint(t))
			return
		}
		b.Write(raw)
	}
}

func writeArray(b *strings.Builder, arr []any) {
	b.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			b.WriteString(", ")
		}
		writeValue(b, item)
	}
	b.WriteByte(']')
}

// writeString writes s as a JSON string without HTML escaping, leaving
// non-ASCII characters unescaped.
func writeString(b *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		b.WriteString(`""`)
		return
	}
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Scalar renders a decoded scalar as plain text: strings unquoted, everything
// else in its JSON form.
func Scalar(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Format(v)
}
