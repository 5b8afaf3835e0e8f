// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads client and server settings from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/luxfi/jsonrpc"
	"github.com/luxfi/jsonrpc/server"
	"github.com/luxfi/jsonrpc/transport"
)

const envPrefix = "JSONRPC"

// Config holds the settings read from JSONRPC_* variables. Field names map
// to upper snake case, MaxActive to JSONRPC_MAX_ACTIVE.
type Config struct {
	URL       string
	User      string
	Password  string
	ObjectID  string `split_words:"true"`
	MaxActive int    `split_words:"true"`
	MaxSpare  int    `split_words:"true"`
	Transport string
	Profile   bool
	LogLevel  string `envconfig:"LOGLEVEL"`

	Listen    string
	AllowEval bool    `split_words:"true"`
	RateLimit float64 `split_words:"true"`
	RateBurst int     `split_words:"true"`
}

// Default is the configuration before environment overrides.
var Default = Config{
	URL:       "http://localhost:8080/",
	MaxActive: jsonrpc.DefaultMaxActive,
	MaxSpare:  transport.DefaultMaxSpare,
	Transport: transport.DefaultTransport,
	LogLevel:  "info",
	Listen:    ":8080",
	RateBurst: 1,
}

// Load returns Default overridden by the environment.
func Load() (*Config, error) {
	conf := Default
	if err := envconfig.Process(envPrefix, &conf); err != nil {
		return nil, fmt.Errorf("failed to process config env vars: %w", err)
	}
	return &conf, nil
}

// ClientOptions returns the client options for c. The scheduler is passed
// separately because it outlives a single client.
func (c *Config) ClientOptions(s *jsonrpc.Scheduler) []jsonrpc.Option {
	opts := []jsonrpc.Option{
		jsonrpc.WithTransport(c.Transport, c.MaxSpare),
		jsonrpc.WithProfiling(c.Profile),
	}
	if s != nil {
		opts = append(opts, jsonrpc.WithScheduler(s))
	}
	if c.User != "" {
		opts = append(opts, jsonrpc.WithCredentials(c.User, c.Password))
	}
	if c.ObjectID != "" {
		opts = append(opts, jsonrpc.WithObjectID(c.ObjectID))
	}
	return opts
}

// SchedulerOptions returns the scheduler options for c.
func (c *Config) SchedulerOptions() []jsonrpc.SchedulerOption {
	return []jsonrpc.SchedulerOption{jsonrpc.WithMaxActive(c.MaxActive)}
}

// ServerOptions returns the server options for c.
func (c *Config) ServerOptions() []server.Option {
	opts := []server.Option{server.WithAllowEval(c.AllowEval)}
	if c.RateLimit > 0 {
		opts = append(opts, server.WithRateLimit(c.RateLimit, c.RateBurst))
	}
	return opts
}
