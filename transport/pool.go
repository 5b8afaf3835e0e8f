// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"fmt"
	"sync"
)

// DefaultMaxSpare is the number of idle exchanges a pool keeps by default.
const DefaultMaxSpare = 8

// Pool keeps up to maxSpare idle exchanges for reuse.
//
// Unlike a connection pool it never blocks: Acquire builds a new exchange
// when no spare is left and Release drops the exchange once the spare list
// is full.
type Pool struct {
	mu       sync.Mutex
	spare    []Exchange
	maxSpare int
	factory  Factory
}

// NewPool creates a pool building exchanges with factory. A negative
// maxSpare selects DefaultMaxSpare.
func NewPool(factory Factory, maxSpare int) *Pool {
	if maxSpare < 0 {
		maxSpare = DefaultMaxSpare
	}
	return &Pool{
		spare:    make([]Exchange, 0, maxSpare),
		maxSpare: maxSpare,
		factory:  factory,
	}
}

// NewPoolFor creates a pool for a registered transport. It fails with
// ErrUnavailable if the transport is unknown.
func NewPoolFor(name string, maxSpare int) (*Pool, error) {
	factory, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown transport %q", ErrUnavailable, name)
	}
	return NewPool(factory, maxSpare), nil
}

// Acquire returns an idle exchange.
func (p *Pool) Acquire() (Exchange, error) {
	p.mu.Lock()
	if n := len(p.spare); n > 0 {
		x := p.spare[n-1]
		p.spare[n-1] = nil
		p.spare = p.spare[:n-1]
		p.mu.Unlock()
		return x, nil
	}
	p.mu.Unlock()

	if p.factory == nil {
		return nil, ErrUnavailable
	}
	x, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if x == nil {
		return nil, ErrUnavailable
	}
	return x, nil
}

// Release resets x and keeps it if the spare list is not full.
// x must no longer be in use.
func (p *Pool) Release(x Exchange) {
	if x == nil {
		return
	}
	x.Reset()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.spare) < p.maxSpare {
		p.spare = append(p.spare, x)
	}
}

// Len returns the number of spare exchanges.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.spare)
}

// MaxSpare returns the spare limit.
func (p *Pool) MaxSpare() int {
	return p.maxSpare
}
