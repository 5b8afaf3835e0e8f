// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"errors"
	"fmt"

	"github.com/luxfi/jsonrpc/transport"
	"github.com/luxfi/jsonrpc/wire"
)

// Error codes
const (
	CodeRemoteException = wire.CodeRemoteException
	CodeClientError     = wire.CodeClientError
	CodeParseError      = wire.CodeParseError
	CodeNoMethod        = wire.CodeNoMethod
	CodeUnmarshal       = wire.CodeUnmarshal
	CodeMarshal         = wire.CodeMarshal
)

var (
	// ErrTransportUnavailable is returned when no exchange can be created.
	ErrTransportUnavailable = transport.ErrUnavailable
	// ErrSchedulerClosed is returned when submitting to a closed Scheduler.
	ErrSchedulerClosed = errors.New("jsonrpc: scheduler closed")
	// ErrNoCallback is returned by Go when the callback is nil.
	ErrNoCallback = errors.New("jsonrpc: asynchronous call without callback")
)

// TransportError reports an exchange that could not be opened or sent.
type TransportError = transport.Error

// ParseError reports a malformed response payload.
type ParseError = wire.ParseError

// StatusError reports a response with an HTTP status other than 200.
type StatusError struct {
	Code int
	Text string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jsonrpc: remote status %d %s", e.Code, e.Text)
}

// RemoteError is an application error reported by the server.
type RemoteError struct {
	Code    int
	Message string
	Trace   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("jsonrpc: remote exception %d: %s", e.Code, e.Message)
}

// CallbackError wraps a panic raised by an asynchronous callback.
type CallbackError struct {
	ID     uint64
	Method string
	Value  interface{}
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("jsonrpc: callback for call %d (%s) panicked: %v", e.ID, e.Method, e.Value)
}

// Unwrap returns the panic value when it was an error.
func (e *CallbackError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// newRemoteError builds a RemoteError from the error field of a response.
// Older servers send the message as a bare string with the code next to it
// in the envelope.
func newRemoteError(v interface{}, envelope map[string]interface{}) *RemoteError {
	e := &RemoteError{Code: CodeRemoteException}
	switch x := v.(type) {
	case map[string]interface{}:
		if code, ok := wire.Int(x["code"]); ok {
			e.Code = code
		}
		e.Message = wire.String(x["msg"])
		if e.Message == "" {
			e.Message = wire.String(x["message"])
		}
		e.Trace = wire.String(x["trace"])
	default:
		if code, ok := wire.Int(envelope["code"]); ok {
			e.Code = code
		}
		e.Message = wire.String(x)
	}
	return e
}
