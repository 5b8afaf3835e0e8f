// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package logger holds the process logger.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvLevel names the environment variable selecting the log level.
const EnvLevel = "JSONRPC_LOGLEVEL"

var log = logrus.New()

func init() {
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	SetLevel(os.Getenv(EnvLevel))
}

// Get returns the process logger.
func Get() *logrus.Logger {
	return log
}

// SetLevel sets the process log level by name. Unknown names select info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "error":
		log.Level = logrus.ErrorLevel
	case "warn":
		log.Level = logrus.WarnLevel
	case "debug":
		log.Level = logrus.DebugLevel
	default:
		log.Level = logrus.InfoLevel
	}
}
