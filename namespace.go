// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package jsonrpc

import (
	"context"
	"sort"
	"strings"
)

// Method is a remote method bound to the client that discovered it.
type Method struct {
	client *Client
	name   string
}

// Name returns the full dotted method name.
func (m *Method) Name() string { return m.name }

// Call invokes the method synchronously.
func (m *Method) Call(ctx context.Context, args ...interface{}) (interface{}, error) {
	return m.client.Call(ctx, m.name, args...)
}

// Go invokes the method asynchronously and returns the call id.
func (m *Method) Go(args []interface{}, cb Callback) (uint64, error) {
	return m.client.Go(m.name, args, cb)
}

// Namespace groups methods by their dotted name segments. For
// "system.listMethods" the root namespace holds a "system" group whose
// "listMethods" entry is the callable method.
type Namespace struct {
	groups  map[string]*Namespace
	methods map[string]*Method
}

func newNamespace() *Namespace {
	return &Namespace{
		groups:  make(map[string]*Namespace),
		methods: make(map[string]*Method),
	}
}

func (n *Namespace) add(m *Method) {
	segs := strings.Split(m.name, ".")
	cur := n
	for _, seg := range segs[:len(segs)-1] {
		g, ok := cur.groups[seg]
		if !ok {
			g = newNamespace()
			cur.groups[seg] = g
		}
		cur = g
	}
	cur.methods[segs[len(segs)-1]] = m
}

// Group returns the nested group with the given segment name.
func (n *Namespace) Group(name string) (*Namespace, bool) {
	g, ok := n.groups[name]
	return g, ok
}

// Method returns the method with the given terminal segment name.
func (n *Namespace) Method(name string) (*Method, bool) {
	m, ok := n.methods[name]
	return m, ok
}

// Lookup resolves a full dotted name.
func (n *Namespace) Lookup(name string) (*Method, bool) {
	segs := strings.Split(name, ".")
	cur := n
	for _, seg := range segs[:len(segs)-1] {
		g, ok := cur.groups[seg]
		if !ok {
			return nil, false
		}
		cur = g
	}
	return cur.Method(segs[len(segs)-1])
}

// Groups returns the sorted group names.
func (n *Namespace) Groups() []string {
	return sortedKeys(n.groups)
}

// Methods returns the sorted method names of this level.
func (n *Namespace) Methods() []string {
	return sortedKeys(n.methods)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
