// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

// Error codes shared by clients and servers speaking this dialect.
const (
	CodeRemoteException = 490
	CodeClientError     = 550
	CodeParseError      = 590
	CodeNoMethod        = 591
	CodeUnmarshal       = 592
	CodeMarshal         = 593
)

// ParseError reports a malformed payload.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "error parsing result"
	}
	return "error parsing result: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Code is the client error code the payload failure is reported under.
func (e *ParseError) Code() int { return CodeClientError }
