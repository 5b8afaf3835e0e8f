// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package jsonrpc is a client for legacy JSON-RPC endpoints that speak the
// literal wire dialect of package wire over plain HTTP POST exchanges.
//
// # Usage
//
// Dial introspects the endpoint and builds a namespace of its methods:
//
//	client, err := jsonrpc.Dial(ctx, "http://localhost:8080/JSON-RPC")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Synchronous call
//	res, err := client.Call(ctx, "example.echo", "hello")
//
//	// Asynchronous call, completed on the client's scheduler
//	id, err := client.Go("example.echo", []interface{}{"hello"},
//	    func(res interface{}, err error, _ *jsonrpc.Timing) {
//	        fmt.Println(res, err)
//	    })
//	client.Cancel(id)
//
// A method returning a callable reference yields a bound *Client whose
// methods are those of the remote object.
//
// # Scheduling
//
// Asynchronous calls are queued on a Scheduler, DefaultScheduler unless
// WithScheduler says otherwise. At most MaxActive of its calls are in
// flight at once and callbacks run one at a time, in completion order, on
// the scheduler's worker goroutine. A canceled call never reaches its
// callback.
//
// # Architecture
//
//   - wire: literal encoder and tolerant decoder
//   - transport: exchange interface, HTTP exchange, registry and pool
//   - server: HTTP server for the same dialect
//   - client.go, dial.go: Client construction and call paths
//   - call.go: call records and response correlation
//   - scheduler.go: asynchronous admission and dispatch
package jsonrpc
