// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const waitFor = 2 * time.Second

func testCall(method string, exchange func(ctx context.Context) (*Reply, error), cb Callback) *Call {
	return &Call{ID: nextID(), Method: method, cb: cb, exchange: exchange}
}

// blockingExchange returns an exchange that waits for release and counts
// how many exchanges run at once.
func blockingExchange(release <-chan struct{}, running, peak *atomic.Int32, sent *atomic.Int32) func(ctx context.Context) (*Reply, error) {
	return func(ctx context.Context) (*Reply, error) {
		sent.Add(1)
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer running.Add(-1)
		select {
		case <-release:
			return &Reply{Status: 200, Body: "ok"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func TestSchedulerAdmissionCeiling(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewScheduler(WithMaxActive(2))
	defer s.Close()
	require.Equal(t, 2, s.MaxActive())

	var running, peak, sent atomic.Int32
	release := make(chan struct{})
	done := make(chan uint64, 5)
	for i := 0; i < 5; i++ {
		call := testCall("slow", blockingExchange(release, &running, &peak, &sent), func(_ interface{}, err error, _ *Timing) {
			assert.NoError(t, err)
			done <- 0
		})
		require.NoError(t, s.Enqueue(call))
	}

	require.Eventually(t, func() bool { return s.Active() == 2 }, waitFor, time.Millisecond)
	require.Equal(t, 3, s.Pending())
	close(release)

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(waitFor):
			t.Fatalf("only %d of 5 callbacks ran", i)
		}
	}
	require.LessOrEqual(t, peak.Load(), int32(2))
	require.Equal(t, int32(5), sent.Load())
	require.Eventually(t, func() bool { return s.Active() == 0 }, waitFor, time.Millisecond)
}

func TestSchedulerDefaultCeiling(t *testing.T) {
	s := NewScheduler(WithMaxActive(0))
	defer s.Close()
	require.Equal(t, DefaultMaxActive, s.MaxActive())
}

func TestSchedulerCancelPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewScheduler()
	defer s.Close()

	var running, peak, sent atomic.Int32
	release := make(chan struct{})
	first := make(chan struct{})
	var canceledCalled atomic.Bool

	a := testCall("a", blockingExchange(release, &running, &peak, &sent), func(interface{}, error, *Timing) {
		close(first)
	})
	b := testCall("b", blockingExchange(release, &running, &peak, &sent), func(interface{}, error, *Timing) {
		canceledCalled.Store(true)
	})
	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))
	require.Eventually(t, func() bool { return s.Active() == 1 }, waitFor, time.Millisecond)

	require.True(t, s.Cancel(b.ID))
	close(release)

	select {
	case <-first:
	case <-time.After(waitFor):
		t.Fatal("first callback did not run")
	}
	require.Eventually(t, func() bool { return s.Pending() == 0 }, waitFor, time.Millisecond)
	require.NoError(t, s.Close())

	require.Equal(t, int32(1), sent.Load(), "canceled pending call was sent")
	require.False(t, canceledCalled.Load())
}

func TestSchedulerCancelInFlight(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewScheduler()

	var running, peak, sent atomic.Int32
	release := make(chan struct{})
	var called atomic.Bool
	call := testCall("a", blockingExchange(release, &running, &peak, &sent), func(interface{}, error, *Timing) {
		called.Store(true)
	})
	require.NoError(t, s.Enqueue(call))
	require.Eventually(t, func() bool { return running.Load() == 1 }, waitFor, time.Millisecond)

	require.True(t, s.Cancel(call.ID))
	close(release)
	require.Eventually(t, func() bool { return s.Active() == 0 }, waitFor, time.Millisecond)
	require.NoError(t, s.Close())

	require.Equal(t, int32(1), sent.Load())
	require.False(t, called.Load())
}

func TestSchedulerCancelCompleted(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewScheduler(WithMaxActive(2))

	gateA := make(chan struct{})
	gateB := make(chan struct{})
	gated := func(gate chan struct{}) func(ctx context.Context) (*Reply, error) {
		return func(ctx context.Context) (*Reply, error) {
			select {
			case <-gate:
				return &Reply{Status: 200, Body: "ok"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	inA := make(chan struct{})
	hold := make(chan struct{})
	a := testCall("a", gated(gateA), func(interface{}, error, *Timing) {
		close(inA)
		<-hold
	})
	var calledB atomic.Bool
	b := testCall("b", gated(gateB), func(interface{}, error, *Timing) {
		calledB.Store(true)
	})
	require.NoError(t, s.Enqueue(a))
	require.NoError(t, s.Enqueue(b))
	require.Eventually(t, func() bool { return s.Active() == 2 }, waitFor, time.Millisecond)

	// the worker is held inside a's callback while b's response queues up
	close(gateA)
	select {
	case <-inA:
	case <-time.After(waitFor):
		t.Fatal("callback of a did not run")
	}
	close(gateB)
	queued := func(id uint64) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, res := range s.completed {
			if res.call.ID == id {
				return true
			}
		}
		return false
	}
	require.Eventually(t, func() bool { return queued(b.ID) }, waitFor, time.Millisecond)

	require.True(t, s.Cancel(b.ID))
	close(hold)
	require.Eventually(t, func() bool { return !queued(b.ID) }, waitFor, time.Millisecond)
	require.NoError(t, s.Close())
	require.False(t, calledB.Load())
}

func TestSchedulerCancelUnknown(t *testing.T) {
	s := NewScheduler()
	defer s.Close()
	require.False(t, s.Cancel(nextID()))
}

func TestSchedulerCompletionOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewScheduler(WithMaxActive(2))
	defer s.Close()

	releaseA := make(chan struct{})
	releaseB := make(chan struct{})
	wait := func(release chan struct{}) func(ctx context.Context) (*Reply, error) {
		return func(ctx context.Context) (*Reply, error) {
			select {
			case <-release:
				return &Reply{Status: 200}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	var (
		mu    sync.Mutex
		order []string
	)
	done := make(chan struct{}, 2)
	record := func(name string) Callback {
		return func(interface{}, error, *Timing) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			done <- struct{}{}
		}
	}

	require.NoError(t, s.Enqueue(testCall("A", wait(releaseA), record("A"))))
	require.NoError(t, s.Enqueue(testCall("B", wait(releaseB), record("B"))))
	require.Eventually(t, func() bool { return s.Active() == 2 }, waitFor, time.Millisecond)

	close(releaseB)
	<-done
	close(releaseA)
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"B", "A"}, order)
}

func TestSchedulerCallbackPanic(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	errs := make(chan error, 1)
	s := NewScheduler(WithErrorHandler(func(err error) { errs <- err }))
	defer s.Close()

	boom := errors.New("boom")
	call := testCall("explode", func(context.Context) (*Reply, error) {
		return &Reply{Status: 200}, nil
	}, func(interface{}, error, *Timing) {
		panic(boom)
	})
	require.NoError(t, s.Enqueue(call))

	var err error
	select {
	case err = <-errs:
	case <-time.After(waitFor):
		t.Fatal("panic was not reported")
	}
	var cbErr *CallbackError
	require.ErrorAs(t, err, &cbErr)
	require.Equal(t, call.ID, cbErr.ID)
	require.Equal(t, "explode", cbErr.Method)
	require.ErrorIs(t, err, boom)

	// the worker survives the panic
	next := make(chan struct{})
	require.NoError(t, s.Enqueue(testCall("next", func(context.Context) (*Reply, error) {
		return &Reply{Status: 200}, nil
	}, func(interface{}, error, *Timing) { close(next) })))
	select {
	case <-next:
	case <-time.After(waitFor):
		t.Fatal("scheduler stopped after panic")
	}
}

func TestSchedulerDeliversErrors(t *testing.T) {
	s := NewScheduler()
	defer s.Close()

	failure := errors.New("no route")
	got := make(chan error, 1)
	require.NoError(t, s.Enqueue(testCall("fail", func(context.Context) (*Reply, error) {
		return nil, failure
	}, func(res interface{}, err error, _ *Timing) {
		assert.Nil(t, res)
		got <- err
	})))
	select {
	case err := <-got:
		require.ErrorIs(t, err, failure)
	case <-time.After(waitFor):
		t.Fatal("callback did not run")
	}
}

func TestSchedulerKickCollapses(t *testing.T) {
	s := NewScheduler()
	defer s.Close()
	for i := 0; i < 100; i++ {
		s.Kick()
	}
	require.LessOrEqual(t, len(s.kick), 1)
}

func TestSchedulerClosed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewScheduler()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.Enqueue(testCall("late", nil, func(interface{}, error, *Timing) {}))
	require.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestSchedulerRejectsSyncCall(t *testing.T) {
	s := NewScheduler()
	defer s.Close()
	require.ErrorIs(t, s.Enqueue(testCall("sync", nil, nil)), ErrNoCallback)
}

func TestDefaultSchedulerIsShared(t *testing.T) {
	require.Same(t, DefaultScheduler(), DefaultScheduler())
}
