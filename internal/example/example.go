// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package example is the demo service served by `jsonrpc serve`.
package example

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/luxfi/jsonrpc/server"
)

// Name is the service name the demo is registered under.
const Name = "example"

// Service implements echo style string methods and hands out counter
// objects.
type Service struct {
	srv *server.Server
}

// Register registers a Service on srv.
func Register(srv *server.Server) error {
	return srv.Register(&Service{srv: srv}, Name)
}

func (*Service) Echo(_ *http.Request, args *server.Params, reply *interface{}) error {
	if len(*args) > 0 {
		*reply = (*args)[0]
	}
	return nil
}

func (*Service) Reverse(_ *http.Request, args *string, reply *string) error {
	r := []rune(*args)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	*reply = string(r)
	return nil
}

func (*Service) Uppercase(_ *http.Request, args *string, reply *string) error {
	*reply = strings.ToUpper(*args)
	return nil
}

func (*Service) Lowercase(_ *http.Request, args *string, reply *string) error {
	*reply = strings.ToLower(*args)
	return nil
}

// Now returns the server time.
func (*Service) Now(_ *http.Request, _ *server.Params, reply *time.Time) error {
	*reply = time.Now()
	return nil
}

// Fail always fails with code 42.
func (*Service) Fail(_ *http.Request, _ *server.Params, _ *interface{}) error {
	return server.NewError(42, "boom")
}

// Counter exports a new counter starting at the given value.
func (s *Service) Counter(_ *http.Request, args *int64, reply *server.Reference) error {
	ref, err := s.srv.Export(&Counter{n: *args})
	if err != nil {
		return err
	}
	*reply = ref
	return nil
}

// Counter is an exported object.
type Counter struct {
	mu sync.Mutex
	n  int64
}

// Increment adds one and returns the new value.
func (c *Counter) Increment(_ *http.Request, _ *server.Params, reply *int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	*reply = c.n
	return nil
}

func (c *Counter) Value(_ *http.Request, _ *server.Params, reply *int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*reply = c.n
	return nil
}
