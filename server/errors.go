// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"errors"
	"fmt"

	"github.com/luxfi/jsonrpc/wire"
)

// Error is an application error sent back to the caller. Handlers return it
// to choose the code; any other error is reported as a remote exception.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Trace   string `json:"trace,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewError returns an application error with the given code.
func NewError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errorOf(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: wire.CodeRemoteException, Message: err.Error()}
}
