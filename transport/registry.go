// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"sort"
	"sync"
)

// Transport types
const (
	TransportHTTP = "http" // net/http, default
)

// DefaultTransport is the default transport type (HTTP)
const DefaultTransport = TransportHTTP

// Factory creates a new exchange.
type Factory func() (Exchange, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]Factory{
		TransportHTTP: newHTTP,
	}
)

func newHTTP() (Exchange, error) {
	return NewHTTPExchange(nil), nil
}

// RegisterTransport registers an exchange factory under name, replacing any
// previous registration. A nil factory removes the transport.
func RegisterTransport(name string, factory Factory) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	if factory == nil {
		delete(transports, name)
		return
	}
	transports[name] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	f, ok := transports[name]
	return f, ok
}

// AvailableTransports returns the sorted list of registered transport types
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := Lookup(name)
	return ok
}
