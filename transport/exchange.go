// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport provides the request/response exchanges RPC calls travel
// over, a registry of exchange factories and a pool of spare exchanges.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/jsonrpc/wire"
)

// ErrUnavailable is returned when no exchange mechanism can be created.
var ErrUnavailable = errors.New("transport: no exchange mechanism available")

// Credentials are passed to every exchange of a client.
type Credentials struct {
	User     string
	Password string
}

// Exchange is a single reusable request/response handle.
//
// An exchange is owned by at most one in-flight call. Reset clears the
// request, response and completion hooks so the handle can be handed out
// again by a Pool.
type Exchange interface {
	// Open prepares a request. creds may be nil.
	Open(method, url string, creds *Credentials)
	// SetHeader sets a request header. Callers treat failures as non-fatal.
	SetHeader(name, value string) error
	// Send performs the exchange and blocks until it completes. Completion
	// hooks run before Send returns, whether or not it failed.
	Send(ctx context.Context, body []byte) error
	// OnComplete registers a completion hook.
	OnComplete(func(Exchange))

	Status() int
	StatusText() string
	ResponseText() string
	Header(name string) string

	// Abort cancels a running Send.
	Abort()
	// Reset returns the exchange to its idle state.
	Reset()
}

// Error reports an exchange that could not be opened or sent.
type Error struct {
	Op  string
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: connection failed: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code is the client error code transport failures are reported under.
func (e *Error) Code() int { return wire.CodeClientError }
