/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package streamwin

import (
	"io"

	"github.com/rulego/streamwin/logger"
)

// Option modifies the default behaviour of a StreamWin instance.
type Option func(*StreamWin)

// WithLogger sets a custom logger for pipelines built by this instance.
//
// Example:
//
//	custom := logger.New(logger.DEBUG, os.Stderr)
//	sw := streamwin.New(streamwin.WithLogger(custom))
func WithLogger(log logger.Logger) Option {
	return func(sw *StreamWin) {
		sw.log = log
	}
}

// WithLogLevel adjusts the level of the instance logger.
//
// Example:
//
//	sw := streamwin.New(streamwin.WithLogLevel(logger.DEBUG))
func WithLogLevel(level logger.Level) Option {
	return func(sw *StreamWin) {
		sw.log.SetLevel(level)
	}
}

// WithLogOutput directs pipeline logging to the given writer at the given
// level.
//
// Example:
//
//	f, _ := os.OpenFile("streamwin.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
//	sw := streamwin.New(streamwin.WithLogOutput(f, logger.INFO))
func WithLogOutput(output io.Writer, level logger.Level) Option {
	return func(sw *StreamWin) {
		sw.log = logger.New(level, output)
	}
}

// WithDiscardLog disables all pipeline logging.
func WithDiscardLog() Option {
	return func(sw *StreamWin) {
		sw.log = logger.NewDiscard()
	}
}

// WithBufferSize sets the per-stage buffer capacity of pipelines built by
// this instance.
func WithBufferSize(n int) Option {
	return func(sw *StreamWin) {
		sw.bufferSize = n
	}
}
