// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	rpc "github.com/gorilla/rpc/v2"

	"github.com/luxfi/jsonrpc/wire"
)

// Guard is prepended to payloads unless direct evaluation is allowed.
const Guard = "throw new Error(\"Direct evaluation not allowed\");\n"

const objectPrefix = ".obj#"

// Params receives the whole positional parameter list. Handlers taking
// *Params see every argument; any other args type is filled from the
// first parameter.
type Params []interface{}

// codec is the gorilla codec for the literal wire dialect.
type codec struct {
	srv *Server
}

func (c *codec) NewRequest(r *http.Request) rpc.CodecRequest {
	req := &codecRequest{srv: c.srv}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		req.err = &Error{Code: wire.CodeParseError, Message: err.Error()}
		return req
	}
	v, err := wire.Decode(data)
	if err != nil {
		req.err = &Error{Code: wire.CodeParseError, Message: err.Error()}
		return req
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		req.err = &Error{Code: wire.CodeParseError, Message: fmt.Sprintf("request is %T, not an object", v)}
		return req
	}
	req.id = m["id"]
	req.method = wire.String(m["method"])
	switch p := m["params"].(type) {
	case []interface{}:
		req.params = p
	case nil:
	default:
		req.err = &Error{Code: wire.CodeParseError, Message: fmt.Sprintf("params is %T, not an array", p)}
	}
	return req
}

type codecRequest struct {
	srv    *Server
	id     interface{}
	method string
	params []interface{}
	object string
	err    *Error
}

type response struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result"`
}

type errorResponse struct {
	ID    interface{} `json:"id"`
	Error *Error      `json:"error"`
}

// Method maps the wire method name to the gorilla service method.
//
//	echo                  _.Echo
//	example.echo          example.Echo
//	.obj#<id>.listMethods system.ListMethods
//	.obj#<id>.increment   obj#<id>.Increment
func (c *codecRequest) Method() (string, error) {
	if c.err != nil {
		return "", c.err
	}
	var name string
	if rest, ok := strings.CutPrefix(c.method, objectPrefix); ok {
		id, method, ok := strings.Cut(rest, ".")
		if !ok || !c.srv.hasObject(id) {
			return "", c.noMethod()
		}
		if method == listMethods {
			c.object = id
			return systemService + "." + upperFirst(listMethods), nil
		}
		name = objectService(id) + "." + upperFirst(method)
	} else {
		service, method := rootService, c.method
		if i := strings.LastIndexByte(c.method, '.'); i >= 0 {
			service, method = c.method[:i], c.method[i+1:]
		}
		name = service + "." + upperFirst(method)
	}
	if !c.srv.rpc.HasMethod(name) {
		return "", c.noMethod()
	}
	return name, nil
}

func (c *codecRequest) noMethod() *Error {
	return &Error{Code: wire.CodeNoMethod, Message: "method not found: " + c.method}
}

// ReadRequest fills args from the positional parameters.
func (c *codecRequest) ReadRequest(args interface{}) error {
	switch a := args.(type) {
	case *Params:
		*a = c.params
		return nil
	case *ListMethodsArgs:
		a.Object = c.object
		return nil
	}
	if len(c.params) == 0 {
		return nil
	}
	data, err := json.Marshal(c.params[0])
	if err != nil {
		return &Error{Code: wire.CodeUnmarshal, Message: err.Error()}
	}
	if err := json.Unmarshal(data, args); err != nil {
		return &Error{Code: wire.CodeUnmarshal, Message: err.Error()}
	}
	return nil
}

func (c *codecRequest) WriteResponse(w http.ResponseWriter, reply interface{}) {
	c.write(w, &response{ID: c.id, Result: reply})
}

// WriteError answers with an error envelope. Errors are part of the payload
// so the status is always 200.
func (c *codecRequest) WriteError(w http.ResponseWriter, _ int, err error) {
	c.write(w, &errorResponse{ID: c.id, Error: errorOf(err)})
}

func (c *codecRequest) write(w http.ResponseWriter, v interface{}) {
	data, err := wire.Encode(v)
	if err != nil {
		c.srv.log.WithError(err).WithField("method", c.method).Error("cannot encode response")
		data, _ = wire.Encode(&errorResponse{
			ID:    c.id,
			Error: &Error{Code: wire.CodeMarshal, Message: err.Error()},
		})
	}
	var buf bytes.Buffer
	if !c.srv.allowEval {
		buf.WriteString(Guard)
		buf.WriteString("/*")
	}
	buf.Write(data)
	if !c.srv.allowEval {
		buf.WriteString("*/")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
