// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"github.com/goccy/go-json"

	"github.com/luxfi/jsonrpc/wire"
)

// Codec encodes call envelopes and decodes response payloads
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// LiteralCodec speaks the legacy literal dialect: non-ASCII escaped strings,
// tagged dates and unquoted keys in responses.
type LiteralCodec struct{}

func (LiteralCodec) Encode(v interface{}) ([]byte, error) {
	return wire.Encode(v)
}

func (LiteralCodec) Decode(data []byte) (interface{}, error) {
	return wire.Decode(data)
}

// defaultCodec is used when no codec is specified
var defaultCodec Codec = LiteralCodec{}

// JSONCodec is a strict JSON codec for servers that only accept plain JSON.
// Response payloads are still unwrapped from guard lines and comments.
type JSONCodec struct{}

func (JSONCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte) (interface{}, error) {
	text, err := wire.Unwrap(data)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(text, &v); err != nil {
		return nil, &ParseError{Err: err}
	}
	return v, nil
}
