// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"bytes"
	"errors"
	"strconv"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/ohler55/ojg/sen"
)

var (
	guardPrefix  = []byte("throw ")
	commentOpen  = []byte("/*")
	commentClose = []byte("*/")

	errUnterminatedGuard   = errors.New("guard line is not terminated")
	errUnterminatedComment = errors.New("comment wrapper is not terminated")
	errEmptyPayload        = errors.New("empty payload")
)

// Decode parses a response payload.
//
// Servers protect payloads from direct evaluation with a leading
// `throw ...;` line and/or a /* */ wrapper; both are stripped before the
// remaining text is parsed as a literal. Unquoted object keys are accepted,
// and a bare undefined reads as null.
// Objects tagged with DateClass decode to time.Time, objects to
// map[string]interface{}, arrays to []interface{}, integers to int64 and
// other numbers to float64.
func Decode(data []byte) (interface{}, error) {
	text, err := Unwrap(data)
	if err != nil {
		return nil, err
	}
	v, err := sen.Parse(normalize(text))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return revive(v), nil
}

// Unwrap strips the evaluation guard and comment wrapper from a payload.
func Unwrap(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, guardPrefix) {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return nil, &ParseError{Err: errUnterminatedGuard}
		}
		data = bytes.TrimSpace(data[i+1:])
	}
	if bytes.HasPrefix(data, commentOpen) {
		if len(data) < 4 || !bytes.HasSuffix(data, commentClose) {
			return nil, &ParseError{Err: errUnterminatedComment}
		}
		data = bytes.TrimSpace(data[2 : len(data)-2])
	}
	if len(data) == 0 {
		return nil, &ParseError{Err: errEmptyPayload}
	}
	return data, nil
}

// revive turns date tagged objects back into time.Time.
func revive(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		if t, ok := dateOf(x); ok {
			return t
		}
		for k, e := range x {
			x[k] = revive(e)
		}
	case []interface{}:
		for i, e := range x {
			x[i] = revive(e)
		}
	}
	return v
}

func dateOf(m map[string]interface{}) (time.Time, bool) {
	if class, _ := m["javaClass"].(string); class != DateClass {
		return time.Time{}, false
	}
	switch ms := m["time"].(type) {
	case int64:
		return time.UnixMilli(ms), true
	case float64:
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

var undefined = []byte("undefined")

// normalize joins escaped UTF-16 surrogate pairs into the UTF-8 rune they
// encode and rewrites bare undefined values to null. The parser would
// otherwise read each surrogate half as U+FFFD and undefined as a string.
func normalize(text []byte) []byte {
	if bytes.IndexByte(text, '\\') < 0 && !bytes.Contains(text, undefined) {
		return text
	}
	out := make([]byte, 0, len(text))
	var quote byte
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case quote != 0 && c == '\\':
			if r, n := surrogatePair(text[i:]); n > 0 {
				out = utf8.AppendRune(out, r)
				i += n
				continue
			}
			end := min(i+2, len(text))
			out = append(out, text[i:end]...)
			i = end
			continue
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case bytes.HasPrefix(text[i:], undefined) && isBareValue(text, i, i+len(undefined)):
			out = append(out, "null"...)
			i += len(undefined)
			continue
		}
		out = append(out, c)
		i++
	}
	return out
}

// surrogatePair decodes a \uD8xx\uDCxx escape pair at the start of b and
// returns the rune and the number of bytes consumed, or 0 when b does not
// start with one.
func surrogatePair(b []byte) (rune, int) {
	const n = len(`\u0000\u0000`)
	if len(b) < n || b[1] != 'u' || b[6] != '\\' || b[7] != 'u' {
		return 0, 0
	}
	hi, err := strconv.ParseUint(string(b[2:6]), 16, 16)
	if err != nil || hi < 0xd800 || hi > 0xdbff {
		return 0, 0
	}
	lo, err := strconv.ParseUint(string(b[8:12]), 16, 16)
	if err != nil || lo < 0xdc00 || lo > 0xdfff {
		return 0, 0
	}
	return utf16.DecodeRune(rune(hi), rune(lo)), n
}

// isBareValue reports whether text[start:end] is a whole word in value
// position, not part of a longer word or an object key.
func isBareValue(text []byte, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	rest := bytes.TrimLeft(text[end:], " \t\r\n")
	return len(rest) == 0 || rest[0] != ':'
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c == '-' || c == '.' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c >= 0x80
}
