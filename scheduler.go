// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxActive is the default number of asynchronous exchanges allowed
// in flight at once.
const DefaultMaxActive = 1

// ErrorHandler receives errors no caller can be told about, such as panics
// raised by callbacks.
type ErrorHandler func(err error)

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithMaxActive sets the admission ceiling. Values below one are ignored.
func WithMaxActive(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxActive = n
		}
	}
}

// WithErrorHandler sets the top-level handler for callback panics.
func WithErrorHandler(h ErrorHandler) SchedulerOption {
	return func(s *Scheduler) {
		if h != nil {
			s.handler = h
		}
	}
}

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(l logrus.FieldLogger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

type response struct {
	call   *Call
	result interface{}
	err    error
}

// Scheduler queues asynchronous calls, admits them up to a concurrency
// ceiling and dispatches their callbacks.
//
// All scheduling happens in drain cycles run by a single worker goroutine.
// A cycle first dispatches every completed response, in completion order,
// and then admits pending calls in FIFO order while the ceiling allows.
// Callbacks therefore observe completion order, not submission order.
// Kick requests a cycle; kicks issued before the cycle starts collapse into
// one.
type Scheduler struct {
	mu        sync.Mutex
	pending   []*Call
	inflight  map[uint64]*Call
	completed []*response
	active    int
	maxActive int
	closed    bool

	kick    chan struct{}
	handler ErrorHandler
	log     logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler and starts its worker.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		inflight:  make(map[uint64]*Call),
		maxActive: DefaultMaxActive,
		kick:      make(chan struct{}, 1),
		log:       log,
	}
	s.handler = s.logError
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	go s.loop()
	return s
}

var (
	defaultSchedulerOnce sync.Once
	defaultScheduler     *Scheduler
)

// DefaultScheduler returns the process-wide scheduler shared by clients
// that were not given one.
func DefaultScheduler() *Scheduler {
	defaultSchedulerOnce.Do(func() {
		defaultScheduler = NewScheduler()
	})
	return defaultScheduler
}

func (s *Scheduler) logError(err error) {
	s.log.WithError(err).Error("asynchronous callback failed")
}

// Enqueue appends an asynchronous call to the pending queue.
func (s *Scheduler) Enqueue(call *Call) error {
	if !call.Async() {
		return ErrNoCallback
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.pending = append(s.pending, call)
	s.mu.Unlock()
	s.Kick()
	return nil
}

// Kick requests a drain cycle.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Cancel marks the call with the given id canceled, wherever it is queued.
// A call canceled before admission is never sent; one canceled in flight or
// after completion never reaches its callback. Cancel reports false when
// the id is unknown, which includes calls already dispatched.
func (s *Scheduler) Cancel(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if call, ok := s.inflight[id]; ok {
		call.canceled = true
		return true
	}
	for _, call := range s.pending {
		if call.ID == id {
			call.canceled = true
			return true
		}
	}
	for _, res := range s.completed {
		if res.call.ID == id {
			res.call.canceled = true
			return true
		}
	}
	return false
}

// Active returns the number of admitted exchanges not yet finished.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Pending returns the number of calls waiting for admission.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// MaxActive returns the admission ceiling.
func (s *Scheduler) MaxActive() int {
	return s.maxActive
}

// Close stops the worker and cancels running exchanges. Queued calls and
// undelivered responses are dropped.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.kick:
			s.drain()
		}
	}
}

func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.completed) == 0 {
			s.mu.Unlock()
			break
		}
		res := s.completed[0]
		s.completed[0] = nil
		s.completed = s.completed[1:]
		canceled := res.call.canceled
		s.mu.Unlock()

		if !canceled {
			s.dispatch(res)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.pending) > 0 && s.active < s.maxActive && !s.closed {
		call := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		if call.canceled {
			s.log.WithField("id", call.ID).Debug("dropping canceled call")
			continue
		}
		s.active++
		s.inflight[call.ID] = call
		s.log.WithFields(logrus.Fields{"id": call.ID, "method": call.Method}).Debug("sending call")
		s.wg.Add(1)
		go s.run(call)
	}
}

func (s *Scheduler) run(call *Call) {
	defer s.wg.Done()
	if call.timing != nil {
		call.timing.Start = time.Now()
	}
	reply, err := call.exchange(s.ctx)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	var result interface{}
	if err == nil {
		result, err = call.complete(s.ctx, reply)
	}

	s.mu.Lock()
	delete(s.inflight, call.ID)
	if call.canceled {
		s.log.WithField("id", call.ID).Debug("discarding response of canceled call")
	} else {
		s.completed = append(s.completed, &response{call: call, result: result, err: err})
	}
	s.mu.Unlock()
	s.Kick()
}

func (s *Scheduler) dispatch(res *response) {
	defer func() {
		if r := recover(); r != nil {
			s.handler(&CallbackError{ID: res.call.ID, Method: res.call.Method, Value: r})
		}
	}()
	if res.call.timing != nil {
		res.call.timing.Dispatch = time.Now()
	}
	res.call.cb(res.result, res.err, res.call.timing)
}
