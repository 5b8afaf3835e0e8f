// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/luxfi/jsonrpc/wire"
)

// requestID hands out call ids for the whole process.
var requestID atomic.Uint64

func nextID() uint64 {
	return requestID.Add(1)
}

// Timing holds the profiling marks of an asynchronous call.
type Timing struct {
	Submit   time.Time
	Start    time.Time
	End      time.Time
	Dispatch time.Time
}

// Callback receives the outcome of an asynchronous call. Exactly one of
// result and err is meaningful. timing is nil unless profiling is enabled.
type Callback func(result interface{}, err error, timing *Timing)

// Reply is the raw outcome of one exchange.
type Reply struct {
	Status     int
	StatusText string
	Body       string
}

// Call tracks one outstanding remote call.
type Call struct {
	ID      uint64
	Method  string
	Payload []byte

	cb     Callback
	timing *Timing

	// canceled is guarded by the owning Scheduler.
	canceled bool

	exchange func(ctx context.Context) (*Reply, error)
	decode   func(ctx context.Context, r *Reply) (interface{}, error)
}

// Async reports whether the call completes through a callback.
func (c *Call) Async() bool {
	return c.cb != nil
}

func (c *Call) complete(ctx context.Context, r *Reply) (interface{}, error) {
	if c.decode == nil {
		return r, nil
	}
	return c.decode(ctx, r)
}

type request struct {
	ID     uint64        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// newCall builds the call record for method. A nil cb makes the call
// synchronous.
func (c *Client) newCall(method string, args []interface{}, cb Callback) (*Call, error) {
	if c.objectID != "" {
		method = ".obj#" + c.objectID + "." + method
	}
	if args == nil {
		args = []interface{}{}
	}
	call := &Call{
		ID:     nextID(),
		Method: method,
		cb:     cb,
	}
	payload, err := c.codec.Encode(request{ID: call.ID, Method: method, Params: args})
	if err != nil {
		return nil, fmt.Errorf("encode call %s: %w", method, err)
	}
	call.Payload = payload
	if cb != nil && c.profile {
		call.timing = &Timing{Submit: time.Now()}
	}
	call.exchange = func(ctx context.Context) (*Reply, error) {
		return c.exchange(ctx, call)
	}
	call.decode = c.decode
	return call, nil
}

// decode turns a reply into the call result: the decoded result value, a
// bound proxy Client for callable references, or an error.
func (c *Client) decode(ctx context.Context, r *Reply) (interface{}, error) {
	if r.Status != http.StatusOK {
		return nil, &StatusError{Code: r.Status, Text: r.StatusText}
	}
	v, err := c.codec.Decode([]byte(r.Body))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			return nil, err
		}
		return nil, &ParseError{Err: err}
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, &ParseError{Err: fmt.Errorf("response is %T, not an object", v)}
	}
	if e := obj["error"]; wire.Truthy(e) {
		return nil, newRemoteError(e, obj)
	}
	res := obj["result"]
	if id, ok := callableReference(res); ok {
		return c.Bind(ctx, id)
	}
	return res, nil
}

// callableReference reports whether a result is a handle to a remote object.
func callableReference(v interface{}) (string, bool) {
	m, ok := v.(map[string]interface{})
	if !ok || !wire.Truthy(m["objectID"]) {
		return "", false
	}
	if kind, _ := m["JSONRPCType"].(string); kind != "CallableReference" {
		return "", false
	}
	return wire.String(m["objectID"]), true
}
