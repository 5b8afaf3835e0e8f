// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command jsonrpc lists and calls the methods of a JSON-RPC endpoint, or
// serves the example service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/luxfi/jsonrpc"
	"github.com/luxfi/jsonrpc/config"
	"github.com/luxfi/jsonrpc/internal/example"
	"github.com/luxfi/jsonrpc/internal/logger"
	"github.com/luxfi/jsonrpc/server"
	"github.com/luxfi/jsonrpc/wire"
)

var log = logger.Get().WithField("prefix", "main")

type cli struct {
	conf *config.Config

	url     *string
	timeout *time.Duration
	method  *string
	args    *[]string
	async   *bool
	listen  *string
}

func main() {
	conf, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Error loading configuration")
	}
	logger.SetLevel(conf.LogLevel)

	c := &cli{conf: conf}
	app := kingpin.New("jsonrpc", "JSON-RPC client and example server")
	c.url = app.Flag("url", "Endpoint URL").Short('u').Default(conf.URL).String()
	c.timeout = app.Flag("timeout", "Call timeout").Default("30s").Duration()

	app.Command("list", "List the methods of the endpoint").Action(c.list)

	callCmd := app.Command("call", "Call a method; arguments are parsed as literals, falling back to strings")
	c.method = callCmd.Arg("method", "Dotted method name").Required().String()
	c.args = callCmd.Arg("args", "Arguments").Strings()
	c.async = callCmd.Flag("async", "Send through the scheduler").Bool()
	callCmd.Action(c.call)

	serveCmd := app.Command("serve", "Serve the example service")
	c.listen = serveCmd.Flag("listen", "Listen address").Default(conf.Listen).String()
	serveCmd.Action(c.serve)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func (c *cli) dial(ctx context.Context) (*jsonrpc.Client, *jsonrpc.Scheduler, error) {
	s := jsonrpc.NewScheduler(c.conf.SchedulerOptions()...)
	client, err := jsonrpc.Dial(ctx, *c.url, c.conf.ClientOptions(s)...)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return client, s, nil
}

func (c *cli) list(*kingpin.ParseContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), *c.timeout)
	defer cancel()

	client, s, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	for _, name := range client.Methods() {
		fmt.Println(name)
	}
	return nil
}

func (c *cli) call(*kingpin.ParseContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), *c.timeout)
	defer cancel()

	client, s, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	args := make([]interface{}, len(*c.args))
	for i, arg := range *c.args {
		args[i] = parseArg(arg)
	}

	var res interface{}
	if *c.async {
		type outcome struct {
			res interface{}
			err error
		}
		done := make(chan outcome, 1)
		id, err := client.Go(*c.method, args, func(res interface{}, err error, timing *jsonrpc.Timing) {
			if timing != nil {
				log.WithField("rtt", timing.End.Sub(timing.Start)).Info("call timing")
			}
			done <- outcome{res, err}
		})
		if err != nil {
			return err
		}
		select {
		case o := <-done:
			res, err = o.res, o.err
		case <-ctx.Done():
			client.Cancel(id)
			err = ctx.Err()
		}
		if err != nil {
			return err
		}
	} else {
		res, err = client.Call(ctx, *c.method, args...)
		if err != nil {
			return err
		}
	}
	return printResult(res)
}

func printResult(res interface{}) error {
	if proxy, ok := res.(*jsonrpc.Client); ok {
		fmt.Printf("object %s: %s\n", proxy.ObjectID(), strings.Join(proxy.Methods(), ", "))
		return nil
	}
	out, err := wire.Encode(res)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// parseArg reads arg as a literal, or as a plain string when it is not one.
func parseArg(arg string) interface{} {
	v, err := wire.Decode([]byte(arg))
	if err != nil {
		return arg
	}
	return v
}

func (c *cli) serve(*kingpin.ParseContext) error {
	srv := server.New(c.conf.ServerOptions()...)
	if err := example.Register(srv); err != nil {
		return err
	}

	hs := &http.Server{
		Addr:              *c.listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdown)
	}()

	log.WithField("addr", *c.listen).Info("serving")
	if err := hs.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
