// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package server serves Go values as JSON-RPC services in the literal wire
// dialect, including introspection and exported callable objects.
//
// Handler methods follow the gorilla/rpc convention:
//
//	func (t *T) Method(r *http.Request, args *Args, reply *Reply) error
//
// and are called as "<service>.method", with the first letter of the
// method lowered. Services registered under the empty name are called by
// the bare method name.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	rpc "github.com/gorilla/rpc/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/luxfi/jsonrpc/internal/logger"
)

// ContentType is the request content type served by the dialect codec.
const ContentType = "text/plain"

const (
	rootService   = "_"
	systemService = "system"
	listMethods   = "listMethods"
	objectTag     = "obj#"
	callableType  = "CallableReference"
)

// Reference is returned in place of an exported object. Clients turn it into
// a proxy bound to ObjectID.
type Reference struct {
	ObjectID    string `json:"objectID"`
	JSONRPCType string `json:"JSONRPCType"`
}

// ListMethodsArgs selects the object whose methods are listed; empty for
// the registered services.
type ListMethodsArgs struct {
	Object string `json:"-"`
}

// Option configures a Server
type Option func(*Server)

// WithAllowEval sends payloads without the evaluation guard.
func WithAllowEval(allow bool) Option {
	return func(s *Server) { s.allowEval = allow }
}

// WithRateLimit limits requests to r per second with the given burst.
// Excess requests are answered with 429.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		if r > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server is an http.Handler dispatching JSON-RPC calls to registered
// services and exported objects.
type Server struct {
	rpc       *rpc.Server
	log       logrus.FieldLogger
	allowEval bool
	limiter   *rate.Limiter

	mu      sync.RWMutex
	methods []string            // wire names of registered service methods
	objects map[string][]string // object id -> wire method names
}

// New returns a server with the introspection service registered.
func New(opts ...Option) *Server {
	s := &Server{
		rpc:     rpc.NewServer(),
		log:     logger.Get().WithField("prefix", "server"),
		objects: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rpc.RegisterCodec(&codec{srv: s}, ContentType)
	s.rpc.RegisterAfterFunc(s.logRequest)
	if err := s.Register(&system{srv: s}, systemService); err != nil {
		panic(err)
	}
	return s
}

func (s *Server) logRequest(i *rpc.RequestInfo) {
	entry := s.log.WithField("method", i.Method)
	if i.Error != nil {
		entry.WithError(i.Error).Debug("call failed")
		return
	}
	entry.Debug("call served")
}

// ErrServiceName is returned by Register for names that cannot be routed.
var ErrServiceName = errors.New("service name must not contain a dot")

// Register adds the exported methods of receiver as service name. An empty
// name registers them at the root.
func (s *Server) Register(receiver interface{}, name string) error {
	if strings.Contains(name, ".") {
		return fmt.Errorf("%w: %q", ErrServiceName, name)
	}
	service := name
	if service == "" {
		service = rootService
	}
	if err := s.rpc.RegisterService(receiver, service); err != nil {
		return err
	}
	names := methodNames(receiver)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range names {
		if name != "" {
			m = name + "." + m
		}
		s.methods = append(s.methods, m)
	}
	return nil
}

// Export registers receiver as a callable object and returns the reference
// to send to the client.
func (s *Server) Export(receiver interface{}) (Reference, error) {
	id := uuid.NewString()
	if err := s.rpc.RegisterService(receiver, objectService(id)); err != nil {
		return Reference{}, err
	}
	s.mu.Lock()
	s.objects[id] = methodNames(receiver)
	s.mu.Unlock()
	s.log.WithField("object", id).Debug("exported object")
	return Reference{ObjectID: id, JSONRPCType: callableType}, nil
}

// Methods returns the wire method names of the exported object objectID,
// or of the registered services when objectID is empty.
func (s *Server) Methods(objectID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var src []string
	if objectID == "" {
		src = s.methods
	} else {
		src = s.objects[objectID]
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func (s *Server) hasObject(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[id]
	return ok
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	s.rpc.ServeHTTP(w, r)
}

func objectService(id string) string {
	return objectTag + id
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}

var (
	typeOfError   = reflect.TypeOf((*error)(nil)).Elem()
	typeOfRequest = reflect.TypeOf((*http.Request)(nil))
)

// methodNames returns the sorted wire names of the methods gorilla accepts
// as handlers.
func methodNames(receiver interface{}) []string {
	t := reflect.TypeOf(receiver)
	var names []string
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		mt := m.Type
		if !m.IsExported() || mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if mt.In(1) != typeOfRequest || mt.In(2).Kind() != reflect.Pointer || mt.In(3).Kind() != reflect.Pointer {
			continue
		}
		if mt.Out(0) != typeOfError {
			continue
		}
		names = append(names, lowerFirst(m.Name))
	}
	sort.Strings(names)
	return names
}

// system is the introspection service.
type system struct {
	srv *Server
}

// ListMethods lists the registered methods, or those of an exported object.
func (s *system) ListMethods(_ *http.Request, args *ListMethodsArgs, reply *[]string) error {
	*reply = s.srv.Methods(args.Object)
	return nil
}
