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

package operator

import (
	"errors"
	"fmt"

	"github.com/rulego/streamwin/logger"
	"github.com/rulego/streamwin/types"
)

// ErrNilOutbox is returned by Init when no outbox is supplied.
var ErrNilOutbox = errors.New("operator outbox must not be nil")

// emitter is the shared outbox plumbing embedded by every operator. It
// parks at most one rejected item; callers must flush before producing new
// emissions and must stop the step immediately after a rejected emit.
type emitter struct {
	name      string
	outbox    types.Outbox
	ctx       *types.Context
	parked    interface{}
	hasParked bool
	wmStage   int // 1 while a watermark forward is in flight
}

func (e *emitter) init(name string, outbox types.Outbox, ctx *types.Context) error {
	if outbox == nil {
		return fmt.Errorf("%w: operator %s", ErrNilOutbox, name)
	}
	e.name = name
	e.outbox = outbox
	e.ctx = ctx
	return nil
}

func (e *emitter) log() logger.Logger {
	return e.ctx.Log()
}

// flush retries the parked item, if any. Reports whether the outbox is
// writable again.
func (e *emitter) flush() bool {
	if !e.hasParked {
		return true
	}
	if !e.outbox.Offer(e.parked) {
		return false
	}
	e.parked = nil
	e.hasParked = false
	return true
}

// emit offers one item, parking it on rejection. After a false return the
// operator must end the current step without touching the outbox again.
func (e *emitter) emit(item interface{}) bool {
	if e.outbox.Offer(item) {
		return true
	}
	e.parked = item
	e.hasParked = true
	return false
}

// forwardWatermark emits wm exactly once across backpressure retries of the
// same step.
func (e *emitter) forwardWatermark(wm types.Watermark) bool {
	if e.wmStage == 1 {
		// the watermark is parked from the previous attempt; flush() at the
		// top of the retry already sent it
		e.wmStage = 0
		return true
	}
	e.wmStage = 1
	if !e.emit(wm) {
		return false
	}
	e.wmStage = 0
	return true
}

// unexpectedItem fails fast on an inbox item the operator cannot consume.
func (e *emitter) unexpectedItem(item interface{}) {
	panic(fmt.Errorf("%w: operator %s received %T", types.ErrUnexpectedItem, e.name, item))
}
