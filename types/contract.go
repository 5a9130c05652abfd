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

package types

import "github.com/rulego/streamwin/logger"

// Inbox is the FIFO an operator drains its input from. Peek returns the head
// item without removing it, Poll removes and returns it. Both return nil when
// the inbox is empty.
type Inbox interface {
	Peek() interface{}
	Poll() interface{}
}

// Outbox is an accept-or-reject sink. Offer returns false when the outbox is
// full; the operator must retry the rejected item on a later call and must
// not offer anything else within the same processing step.
type Outbox interface {
	Offer(item interface{}) bool
}

// Operator is the runtime contract between an operator instance and its host
// scheduler. All methods are invoked from a single logical thread; no method
// may block.
type Operator interface {
	// Init is called exactly once before any input is delivered.
	Init(outbox Outbox, ctx *Context) error

	// ProcessItem drains zero or more data items from the inbox. It returns
	// true iff the inbox was fully consumed for this call; false signals the
	// host to call again once backpressure releases.
	ProcessItem(ordinal int, inbox Inbox) bool

	// ProcessWatermark handles a watermark taken from the stream head. It
	// returns true iff the watermark was fully processed, including its own
	// emission downstream; under backpressure the host calls again with the
	// same watermark.
	ProcessWatermark(wm Watermark) bool

	// Complete signals end-of-stream. The operator emits all remaining state
	// as if an infinite watermark had been received (without emitting a
	// watermark item) and returns true once done.
	Complete() bool
}

// Context carries the per-instance runtime environment an operator is
// initialized with.
type Context struct {
	// InstanceID identifies the operator instance in logs and diagnostics.
	InstanceID string
	// Logger is the operator's log sink. Nil means the process default.
	Logger logger.Logger
}

// Log returns the context logger, falling back to the global default.
func (c *Context) Log() logger.Logger {
	if c == nil || c.Logger == nil {
		return logger.GetDefault()
	}
	return c.Logger
}
