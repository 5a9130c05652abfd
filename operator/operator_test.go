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
	"github.com/rulego/streamwin/extractor"
	"github.com/rulego/streamwin/logger"
	"github.com/rulego/streamwin/types"
	"github.com/rulego/streamwin/utils/queue"
)

// testCtx keeps operator logging out of test output.
func testCtx() *types.Context {
	return &types.Context{InstanceID: "test", Logger: logger.NewDiscard()}
}

// testOutbox collects emitted items, optionally rejecting offers beyond a
// capacity to exercise backpressure paths. capacity <= 0 means unbounded.
type testOutbox struct {
	items    []interface{}
	capacity int
}

func (o *testOutbox) Offer(item interface{}) bool {
	if o.capacity > 0 && len(o.items) >= o.capacity {
		return false
	}
	o.items = append(o.items, item)
	return true
}

// drain removes and returns everything collected so far.
func (o *testOutbox) drain() []interface{} {
	out := o.items
	o.items = nil
	return out
}

// frames filters the collected items down to Frame values.
func (o *testOutbox) frames() []types.Frame {
	var out []types.Frame
	for _, item := range o.items {
		if f, ok := item.(types.Frame); ok {
			out = append(out, f)
		}
	}
	return out
}

// sessions filters the collected items down to Session values.
func (o *testOutbox) sessions() []types.Session {
	var out []types.Session
	for _, item := range o.items {
		if s, ok := item.(types.Session); ok {
			out = append(out, s)
		}
	}
	return out
}

// watermarks filters the collected items down to the watermark subsequence.
func (o *testOutbox) watermarks() []types.Watermark {
	var out []types.Watermark
	for _, item := range o.items {
		if wm, ok := item.(types.Watermark); ok {
			out = append(out, wm)
		}
	}
	return out
}

// event builds a map event in the shape the extractor package reads.
func event(ts int64, key string, val float64) map[string]interface{} {
	return map[string]interface{}{"ts": ts, "key": key, "val": val}
}

var (
	tsField  = extractor.TimestampField("ts")
	keyField = extractor.KeyField("key")
	valField = extractor.ValueField("val")
)

// feed pushes events through ProcessItem one at a time, failing the test
// implicitly if the operator stalls without backpressure.
func feed(op types.Operator, events ...interface{}) {
	inbox := queue.NewQueue(1)
	for _, ev := range events {
		_ = inbox.Push(ev)
		for !op.ProcessItem(0, inbox) {
		}
	}
}

// watermark drives ProcessWatermark to completion.
func watermark(op types.Operator, wm types.Watermark) {
	for !op.ProcessWatermark(wm) {
	}
}
