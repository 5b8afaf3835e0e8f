// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/luxfi/jsonrpc/internal/logger"
	"github.com/luxfi/jsonrpc/transport"
)

var log = logger.Get().WithField("prefix", "jsonrpc")

// Client calls the methods of one remote endpoint, or of one exported
// object at that endpoint when it is bound.
//
// A Client is safe for concurrent use. Its namespace is fixed once Dial
// returns.
type Client struct {
	url       string
	creds     *transport.Credentials
	objectID  string
	header    http.Header
	codec     Codec
	profile   bool
	pool      *transport.Pool
	scheduler *Scheduler
	log       logrus.FieldLogger

	ns    *Namespace
	names []string
}

// URL returns the endpoint address.
func (c *Client) URL() string { return c.url }

// ObjectID returns the bound object id, or "" for the endpoint itself.
func (c *Client) ObjectID() string { return c.objectID }

// Namespace returns the root of the discovered method tree.
func (c *Client) Namespace() *Namespace { return c.ns }

// Methods returns the discovered method names in the order the server
// listed them.
func (c *Client) Methods() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Method returns the discovered method with the given dotted name.
func (c *Client) Method(name string) (*Method, bool) {
	return c.ns.Lookup(name)
}

// Scheduler returns the scheduler asynchronous calls are queued on.
func (c *Client) Scheduler() *Scheduler { return c.scheduler }

// Call sends method synchronously and returns its result. The result is a
// bound *Client when the server returned a callable reference.
func (c *Client) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	call, err := c.newCall(method, args, nil)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"id": call.ID, "method": call.Method}).Debug("calling")
	reply, err := call.exchange(ctx)
	if err != nil {
		return nil, err
	}
	return call.complete(ctx, reply)
}

// Go queues method on the client's scheduler and returns the call id
// immediately. cb receives the result, or the error, once the call
// completes, unless the call is canceled first.
func (c *Client) Go(method string, args []interface{}, cb Callback) (uint64, error) {
	if cb == nil {
		return 0, ErrNoCallback
	}
	call, err := c.newCall(method, args, cb)
	if err != nil {
		return 0, err
	}
	if err := c.scheduler.Enqueue(call); err != nil {
		return 0, fmt.Errorf("queue call %s: %w", call.Method, err)
	}
	return call.ID, nil
}

// Cancel cancels an asynchronous call issued on the client's scheduler.
func (c *Client) Cancel(id uint64) bool {
	return c.scheduler.Cancel(id)
}

// Bind returns a client for the exported object objectID at the same
// endpoint, sharing this client's credentials, pool and scheduler.
func (c *Client) Bind(ctx context.Context, objectID string) (*Client, error) {
	proxy := &Client{
		url:       c.url,
		creds:     c.creds,
		objectID:  objectID,
		header:    c.header,
		codec:     c.codec,
		profile:   c.profile,
		pool:      c.pool,
		scheduler: c.scheduler,
		log:       c.log.WithField("object", objectID),
	}
	if err := proxy.introspect(ctx); err != nil {
		return nil, err
	}
	return proxy, nil
}
