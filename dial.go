// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/jsonrpc/transport"
)

// Introspection methods
const (
	ListMethods       = "system.listMethods"
	ObjectListMethods = "listMethods"
)

var (
	defaultPoolOnce sync.Once
	defaultPool     *transport.Pool
)

// DefaultPool returns the process-wide pool of HTTP exchanges.
func DefaultPool() *transport.Pool {
	defaultPoolOnce.Do(func() {
		factory, _ := transport.Lookup(transport.TransportHTTP)
		defaultPool = transport.NewPool(factory, transport.DefaultMaxSpare)
	})
	return defaultPool
}

// Dial connects to the endpoint at url and discovers its methods with one
// synchronous introspection call.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	c := &Client{
		url:       url,
		creds:     o.creds,
		objectID:  o.objectID,
		header:    o.header,
		codec:     o.codec,
		profile:   o.profile,
		pool:      o.pool,
		scheduler: o.scheduler,
		log:       o.log,
	}
	if c.codec == nil {
		c.codec = defaultCodec
	}
	if c.scheduler == nil {
		c.scheduler = DefaultScheduler()
	}
	if c.log == nil {
		c.log = log.WithField("url", url)
	}
	if c.pool == nil {
		switch {
		case o.transport == transport.DefaultTransport && o.maxSpare < 0:
			c.pool = DefaultPool()
		default:
			pool, err := transport.NewPoolFor(o.transport, o.maxSpare)
			if err != nil {
				return nil, err
			}
			c.pool = pool
		}
	}

	if err := c.introspect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// introspect asks the server for its method list and builds the namespace.
// The introspection method is always part of the namespace.
func (c *Client) introspect(ctx context.Context) error {
	method := ListMethods
	if c.objectID != "" {
		method = ObjectListMethods
	}
	res, err := c.Call(ctx, method)
	if err != nil {
		return fmt.Errorf("list methods of %s: %w", c.url, err)
	}
	list, ok := res.([]interface{})
	if !ok {
		return &ParseError{Err: fmt.Errorf("method list is %T, not an array", res)}
	}

	c.ns = newNamespace()
	c.names = make([]string, 0, len(list)+1)
	seen := make(map[string]bool, len(list)+1)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		c.names = append(c.names, name)
		c.ns.add(&Method{client: c, name: name})
	}
	for _, v := range list {
		name, ok := v.(string)
		if !ok {
			return &ParseError{Err: fmt.Errorf("method name is %T, not a string", v)}
		}
		add(name)
	}
	add(method)
	c.log.WithField("methods", len(c.names)).Debug("introspected")
	return nil
}
