// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// DateClass tags the object literal used to carry dates on the wire.
const DateClass = "java.util.Date"

// Marshaler is implemented by values that write their own wire literal.
type Marshaler interface {
	MarshalWire() ([]byte, error)
}

// UnsupportedTypeError is returned by Encode for values it cannot represent.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return "wire: unsupported type: " + e.Type.String()
}

// UnsupportedValueError is returned by Encode for NaN and infinite floats
// and for values that contain themselves.
type UnsupportedValueError struct {
	Str string
}

func (e *UnsupportedValueError) Error() string {
	return "wire: unsupported value: " + e.Str
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	marshalerType = reflect.TypeOf((*Marshaler)(nil)).Elem()
)

// Encode returns the wire literal for v.
//
// Strings escape '"', '\\', the short control escapes and every other UTF-16
// unit outside 0x20-0x7f as \uXXXX. Dates become a tagged object literal
// carrying milliseconds since the epoch. Function and channel valued
// attributes of maps and structs are skipped.
func Encode(v interface{}) ([]byte, error) {
	e := &encoder{}
	if err := e.encode(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

type encoder struct {
	bytes.Buffer
	// seen holds the pointers, maps and slices on the current path.
	seen map[cycleKey]struct{}
}

type cycleKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// enter records v on the current path and fails when it is already there.
// The returned func removes it again.
func (e *encoder) enter(v reflect.Value) (func(), error) {
	key := cycleKey{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := e.seen[key]; ok {
		return nil, &UnsupportedValueError{Str: "encountered a cycle via " + v.Type().String()}
	}
	if e.seen == nil {
		e.seen = make(map[cycleKey]struct{})
	}
	e.seen[key] = struct{}{}
	return func() { delete(e.seen, key) }, nil
}

func (e *encoder) encode(v reflect.Value) error {
	if !v.IsValid() {
		e.WriteString("null")
		return nil
	}
	if v.Type().Implements(marshalerType) {
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			e.WriteString("null")
			return nil
		}
		b, err := v.Interface().(Marshaler).MarshalWire()
		if err != nil {
			return err
		}
		e.Write(b)
		return nil
	}
	if v.Type() == timeType {
		e.writeDate(v.Interface().(time.Time))
		return nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			e.WriteString("null")
			return nil
		}
		return e.encode(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			e.WriteString("null")
			return nil
		}
		leave, err := e.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return e.encode(v.Elem())
	case reflect.String:
		e.writeString(v.String())
	case reflect.Bool:
		e.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return e.writeFloat(v.Float(), v.Type().Bits())
	case reflect.Slice:
		if v.IsNil() {
			e.WriteString("null")
			return nil
		}
		leave, err := e.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return e.writeArray(v)
	case reflect.Array:
		return e.writeArray(v)
	case reflect.Map:
		if v.IsNil() {
			e.WriteString("null")
			return nil
		}
		leave, err := e.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return e.writeMap(v)
	case reflect.Struct:
		return e.writeStruct(v)
	default:
		return &UnsupportedTypeError{Type: v.Type()}
	}
	return nil
}

func (e *encoder) writeDate(t time.Time) {
	e.WriteString(`{javaClass: "`)
	e.WriteString(DateClass)
	e.WriteString(`", time: `)
	e.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	e.WriteByte('}')
}

func (e *encoder) writeFloat(f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &UnsupportedValueError{Str: strconv.FormatFloat(f, 'g', -1, bits)}
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if format == 'e' {
		// clean up e-09 to e-9
		if n := len(s); n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	e.WriteString(s)
	return nil
}

func (e *encoder) writeArray(v reflect.Value) error {
	e.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			e.WriteString(", ")
		}
		if err := e.encode(v.Index(i)); err != nil {
			return err
		}
	}
	e.WriteByte(']')
	return nil
}

func (e *encoder) writeMap(v reflect.Value) error {
	if v.Type().Key().Kind() != reflect.String {
		return &UnsupportedTypeError{Type: v.Type()}
	}
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	e.WriteByte('{')
	n := 0
	for _, k := range keys {
		elem := v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key()))
		if callable(elem) {
			continue
		}
		if err := e.writeAttr(&n, k, elem); err != nil {
			return err
		}
	}
	e.WriteByte('}')
	return nil
}

func (e *encoder) writeStruct(v reflect.Value) error {
	e.WriteByte('{')
	n := 0
	if err := e.writeFields(&n, v); err != nil {
		return err
	}
	e.WriteByte('}')
	return nil
}

func (e *encoder) writeFields(n *int, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		fv := v.Field(i)
		if field.Anonymous && name == "" && field.Type.Kind() == reflect.Struct {
			if err := e.writeFields(n, fv); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() || callable(fv) {
			continue
		}
		if opts == "omitempty" && fv.IsZero() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		if err := e.writeAttr(n, name, fv); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeAttr(n *int, key string, v reflect.Value) error {
	if *n > 0 {
		e.WriteString(", ")
	}
	*n++
	e.writeString(key)
	e.WriteString(": ")
	return e.encode(v)
}

// callable reports whether an attribute holds a function or channel. Such
// attributes never reach the wire.
func callable(v reflect.Value) bool {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v.Kind() == reflect.Func || v.Kind() == reflect.Chan
}

const hex = "0123456789abcdef"

func (e *encoder) writeString(s string) {
	e.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == '"' || r == '\\':
			e.WriteByte('\\')
			e.WriteByte(byte(r))
		case r == '\b':
			e.WriteString(`\b`)
		case r == '\f':
			e.WriteString(`\f`)
		case r == '\n':
			e.WriteString(`\n`)
		case r == '\r':
			e.WriteString(`\r`)
		case r == '\t':
			e.WriteString(`\t`)
		case r < 0x20 || (r >= 0x80 && r <= 0xffff):
			e.writeUnit(uint16(r))
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			e.writeUnit(uint16(hi))
			e.writeUnit(uint16(lo))
		default:
			e.WriteByte(byte(r))
		}
	}
	e.WriteByte('"')
}

func (e *encoder) writeUnit(u uint16) {
	e.WriteString(`\u`)
	e.WriteByte(hex[u>>12&0xf])
	e.WriteByte(hex[u>>8&0xf])
	e.WriteByte(hex[u>>4&0xf])
	e.WriteByte(hex[u&0xf])
}
