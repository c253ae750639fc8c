// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log is a thin facade over github.com/luxfi/log, attaching a
// component field to every line so row rejections, parse errors, and
// fatal I/O failures are distinguishable in the output stream without
// polluting the CSV snapshot on stdout.
package log

import (
	luxlog "github.com/luxfi/log"
)

// Logger is re-exported so callers don't need to import luxfi/log
// directly.
type Logger = luxlog.Logger

var root = luxlog.Root()

// SetDefault installs l as the default logger, both for luxfi/log's own
// global helpers and for this package's top-level Debug/Info/Warn/Error.
func SetDefault(l Logger) {
	luxlog.SetDefault(l)
	root = l
}

// New returns a Logger tagged with a "component" field, e.g. "engine" or
// "ioformat", mirroring the teacher's New/Root re-export pattern.
func New(component string) Logger {
	return luxlog.New("component", component)
}

func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
