// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchange struct {
	resets int
	hooks  []func(Exchange)
}

func (f *fakeExchange) Open(string, string, *Credentials) {}
func (f *fakeExchange) SetHeader(string, string) error { return nil }
func (f *fakeExchange) Send(context.Context, []byte) error { return nil }
func (f *fakeExchange) OnComplete(hook func(Exchange)) { f.hooks = append(f.hooks, hook) }
func (f *fakeExchange) Status() int { return 200 }
func (f *fakeExchange) StatusText() string { return "OK" }
func (f *fakeExchange) ResponseText() string { return "" }
func (f *fakeExchange) Header(string) string { return "" }
func (f *fakeExchange) Abort() {}
func (f *fakeExchange) Reset() { f.resets++; f.hooks = nil }

func fakeFactory(created *int) Factory {
	return func() (Exchange, error) {
		*created++
		return &fakeExchange{}, nil
	}
}

func TestPoolRetainsAtMostMaxSpare(t *testing.T) {
	created := 0
	pool := NewPool(fakeFactory(&created), 3)

	var handles []Exchange
	for i := 0; i < 5; i++ {
		x, err := pool.Acquire()
		require.NoError(t, err)
		handles = append(handles, x)
	}
	assert.Equal(t, 5, created)
	assert.Equal(t, 0, pool.Len())

	for _, x := range handles {
		pool.Release(x)
		assert.LessOrEqual(t, pool.Len(), pool.MaxSpare())
	}
	assert.Equal(t, 3, pool.Len())
}

func TestPoolReusesSpare(t *testing.T) {
	created := 0
	pool := NewPool(fakeFactory(&created), DefaultMaxSpare)

	x, err := pool.Acquire()
	require.NoError(t, err)
	x.OnComplete(func(Exchange) {})
	pool.Release(x)

	y, err := pool.Acquire()
	require.NoError(t, err)
	assert.Same(t, x, y)
	assert.Equal(t, 1, created)

	fake := y.(*fakeExchange)
	assert.Equal(t, 1, fake.resets)
	assert.Empty(t, fake.hooks)
}

func TestPoolDefaultMaxSpare(t *testing.T) {
	pool := NewPool(nil, -1)
	assert.Equal(t, DefaultMaxSpare, pool.MaxSpare())
}

func TestPoolUnavailable(t *testing.T) {
	_, err := NewPool(nil, 1).Acquire()
	require.ErrorIs(t, err, ErrUnavailable)

	failing := NewPool(func() (Exchange, error) { return nil, errors.New("no xhr") }, 1)
	_, err = failing.Acquire()
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = NewPoolFor("carrier-pigeon", 1)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRegistry(t *testing.T) {
	assert.True(t, HasTransport(TransportHTTP))

	created := 0
	RegisterTransport("fake", fakeFactory(&created))
	t.Cleanup(func() { RegisterTransport("fake", nil) })

	assert.Contains(t, AvailableTransports(), "fake")
	pool, err := NewPoolFor("fake", 1)
	require.NoError(t, err)
	_, err = pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	RegisterTransport("fake", nil)
	assert.False(t, HasTransport("fake"))
}
