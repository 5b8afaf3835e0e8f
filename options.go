// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/luxfi/jsonrpc/transport"
)

// Option configures a Client
type Option func(*options)

type options struct {
	creds     *transport.Credentials
	objectID  string
	scheduler *Scheduler
	pool      *transport.Pool
	transport string
	maxSpare  int
	codec     Codec
	log       logrus.FieldLogger
	profile   bool
	header    http.Header
}

func newOptions(opts []Option) *options {
	o := &options{
		transport: transport.DefaultTransport,
		maxSpare:  -1,
		header:    make(http.Header),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithCredentials sets the user and password passed to every exchange.
func WithCredentials(user, password string) Option {
	return func(o *options) {
		o.creds = &transport.Credentials{User: user, Password: password}
	}
}

// WithObjectID binds the client to an exported remote object.
func WithObjectID(id string) Option {
	return func(o *options) { o.objectID = id }
}

// WithScheduler sets the scheduler asynchronous calls are queued on.
// DefaultScheduler is used otherwise.
func WithScheduler(s *Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithPool sets the exchange pool. It takes precedence over WithTransport.
func WithPool(p *transport.Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithTransport selects a registered transport and the spare limit of the
// pool built for it.
func WithTransport(name string, maxSpare int) Option {
	return func(o *options) {
		o.transport = name
		o.maxSpare = maxSpare
	}
}

// WithCodec sets a custom codec
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger sets the client logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

// WithProfiling records Timing marks for asynchronous calls.
func WithProfiling(enabled bool) Option {
	return func(o *options) { o.profile = enabled }
}

// WithHeader adds a header to every request.
func WithHeader(name, value string) Option {
	return func(o *options) { o.header.Add(name, value) }
}
