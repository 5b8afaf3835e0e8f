// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/luxfi/jsonrpc/transport"
)

// ContentType is the request content type understood by legacy servers.
const ContentType = "text/plain"

// exchange sends the payload of call over a pooled exchange and returns
// the raw reply. The exchange goes back to the pool when the reply has
// been read.
func (c *Client) exchange(ctx context.Context, call *Call) (*Reply, error) {
	x, err := c.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(x)

	x.Open(http.MethodPost, c.url, c.creds)
	if err := x.SetHeader("Content-Type", ContentType); err != nil {
		c.log.WithError(err).Debug("cannot set content type")
	}
	for name, values := range c.header {
		for _, value := range values {
			if err := x.SetHeader(name, value); err != nil {
				c.log.WithError(err).WithField("header", name).Debug("cannot set header")
			}
		}
	}
	if call.timing != nil {
		x.OnComplete(func(transport.Exchange) {
			call.timing.End = time.Now()
		})
	}

	if err := x.Send(ctx, call.Payload); err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			return nil, err
		}
		return nil, &TransportError{Op: "send", URL: c.url, Err: err}
	}
	return &Reply{
		Status:     x.Status(),
		StatusText: x.StatusText(),
		Body:       x.ResponseText(),
	}, nil
}
