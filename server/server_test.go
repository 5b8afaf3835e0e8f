// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/jsonrpc/wire"
)

type mathService struct{}

type AddArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (mathService) Add(_ *http.Request, args *AddArgs, reply *int) error {
	*reply = args.A + args.B
	return nil
}

func (mathService) Sum(_ *http.Request, args *Params, reply *float64) error {
	for _, v := range *args {
		switch n := v.(type) {
		case int64:
			*reply += float64(n)
		case float64:
			*reply += n
		}
	}
	return nil
}

func (mathService) Fail(_ *http.Request, _ *Params, _ *int) error {
	return NewError(42, "boom")
}

func (mathService) Crash(_ *http.Request, _ *Params, _ *int) error {
	return errors.New("crashed")
}

type pingService struct{}

func (pingService) Ping(_ *http.Request, _ *Params, reply *string) error {
	*reply = "pong"
	return nil
}

type tally struct{ n int }

func (t *tally) Bump(_ *http.Request, _ *Params, reply *int) error {
	t.n++
	*reply = t.n
	return nil
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s := New(opts...)
	require.NoError(t, s.Register(mathService{}, "math"))
	require.NoError(t, s.Register(pingService{}, ""))
	return s
}

func post(t *testing.T, h http.Handler, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func call(t *testing.T, h http.Handler, method, params string) map[string]interface{} {
	t.Helper()
	status, body := post(t, h, `{"id": 7, "method": "`+method+`", "params": `+params+`}`)
	require.Equal(t, http.StatusOK, status, body)
	v, err := wire.Decode([]byte(body))
	require.NoError(t, err, body)
	m, ok := v.(map[string]interface{})
	require.True(t, ok, body)
	require.Equal(t, int64(7), m["id"])
	return m
}

func errorCode(t *testing.T, res map[string]interface{}) int {
	t.Helper()
	e, ok := res["error"].(map[string]interface{})
	require.True(t, ok, "no error in %v", res)
	code, ok := wire.Int(e["code"])
	require.True(t, ok)
	return code
}

func TestListMethods(t *testing.T) {
	s := newTestServer(t)
	res := call(t, s, "system.listMethods", "[]")
	require.Equal(t, []interface{}{
		"system.listMethods",
		"math.add", "math.crash", "math.fail", "math.sum",
		"ping",
	}, res["result"])
}

func TestCallMethods(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, int64(5), call(t, s, "math.add", `[{"a": 2, "b": 3}]`)["result"])
	require.Equal(t, 4.5, call(t, s, "math.sum", `[1, 2, 1.5]`)["result"])
	require.Equal(t, "pong", call(t, s, "ping", `[]`)["result"])
}

func TestCallErrors(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s, "math.fail", "[]")
	require.Equal(t, 42, errorCode(t, res))
	require.Equal(t, "boom", res["error"].(map[string]interface{})["msg"])

	require.Equal(t, wire.CodeRemoteException, errorCode(t, call(t, s, "math.crash", "[]")))
	require.Equal(t, wire.CodeNoMethod, errorCode(t, call(t, s, "math.divide", "[]")))
	require.Equal(t, wire.CodeNoMethod, errorCode(t, call(t, s, "nope", "[]")))
	require.Equal(t, wire.CodeUnmarshal, errorCode(t, call(t, s, "math.add", `["two"]`)))
}

func TestBadPayload(t *testing.T) {
	s := newTestServer(t)
	status, body := post(t, s, `[1, 2]`)
	require.Equal(t, http.StatusOK, status)
	v, err := wire.Decode([]byte(body))
	require.NoError(t, err)
	require.Equal(t, wire.CodeParseError, errorCode(t, v.(map[string]interface{})))
}

func TestGuardedPayload(t *testing.T) {
	s := newTestServer(t)
	_, body := post(t, s, `{"id": 1, "method": "ping", "params": []}`)
	require.True(t, strings.HasPrefix(body, Guard+"/*"), body)
	require.True(t, strings.HasSuffix(body, "*/"), body)

	s = newTestServer(t, WithAllowEval(true))
	_, body = post(t, s, `{"id": 1, "method": "ping", "params": []}`)
	require.Equal(t, `{"id": 1, "result": "pong"}`, body)
}

func TestExportedObject(t *testing.T) {
	s := newTestServer(t)
	ref, err := s.Export(&tally{})
	require.NoError(t, err)
	require.Equal(t, callableType, ref.JSONRPCType)
	require.NotEmpty(t, ref.ObjectID)
	require.Equal(t, []string{"bump"}, s.Methods(ref.ObjectID))

	prefix := ".obj#" + ref.ObjectID + "."
	require.Equal(t, []interface{}{"bump"}, call(t, s, prefix+"listMethods", "[]")["result"])
	require.Equal(t, int64(1), call(t, s, prefix+"bump", "[]")["result"])
	require.Equal(t, int64(2), call(t, s, prefix+"bump", "[]")["result"])

	require.Equal(t, wire.CodeNoMethod, errorCode(t, call(t, s, ".obj#missing.bump", "[]")))
	require.Equal(t, wire.CodeNoMethod, errorCode(t, call(t, s, prefix+"drop", "[]")))
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, WithRateLimit(0.001, 1))
	status, _ := post(t, s, `{"id": 1, "method": "ping", "params": []}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = post(t, s, `{"id": 2, "method": "ping", "params": []}`)
	require.Equal(t, http.StatusTooManyRequests, status)
}

func TestPostRequired(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDuplicateService(t *testing.T) {
	s := newTestServer(t)
	require.Error(t, s.Register(mathService{}, "math"))
}

func TestDottedServiceName(t *testing.T) {
	s := newTestServer(t)
	before := s.Methods("")

	err := s.Register(pingService{}, "net.ping")
	require.ErrorIs(t, err, ErrServiceName)
	require.ErrorIs(t, s.Register(pingService{}, ".ping"), ErrServiceName)
	require.Equal(t, before, s.Methods(""))

	require.NoError(t, s.Register(pingService{}, "netping"))
	require.Contains(t, s.Methods(""), "netping.ping")
}
