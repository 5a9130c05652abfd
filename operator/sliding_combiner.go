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
	"fmt"
	"math"

	"github.com/google/btree"
	"github.com/rulego/streamwin/aggregator"
	"github.com/rulego/streamwin/types"
	"github.com/rulego/streamwin/window"
)

// unsetSeq is the sentinel for "no window end emitted yet".
const unsetSeq = math.MinInt64

// SlidingCombinerConfig configures a sliding window combiner.
type SlidingCombinerConfig struct {
	// Window supplies frameLength and framesPerWindow; the window length is
	// their product.
	Window types.WindowConfig
	// Aggregator merges the per-frame partials produced upstream. When it
	// provides Deduct the combiner maintains the live window in constant
	// time per frame; otherwise every window is recomputed from the stored
	// frames.
	Aggregator aggregator.Aggregator
}

// frameAccs holds the key→accumulator map of one stored frame. Frames are
// indexed by their end boundary (start seq + frame length), so that a
// window ending at boundary e spans exactly the entries in (e-W, e].
type frameAccs struct {
	endSeq int64
	accs   map[interface{}]interface{}
}

func lessFrameAccs(a, b *frameAccs) bool { return a.endSeq < b.endSeq }

// combinerCursor is the emission state of one in-flight watermark. It
// survives backpressure so that a retried call resumes at the exact item
// that was rejected.
type combinerCursor struct {
	wm           types.Watermark
	end          int64
	endExclusive int64
	queue        []interface{}
	forwardWm    bool
	wmQueued     bool
}

// SlidingCombiner assembles the per-frame partial aggregates produced by a
// FrameGrouper into overlapping sliding windows and emits one Frame per
// (window end, key) when the watermark passes the window end.
type SlidingCombiner struct {
	emitter
	def window.Def
	agg aggregator.Aggregator

	// frames stores inbound partials ordered by frame end boundary.
	frames *btree.BTreeG[*frameAccs]
	// sliding is the materialised window at the last emitted end. Deduct
	// mode only.
	sliding map[interface{}]interface{}

	nextSeqToEmit int64
	cur           *combinerCursor
}

// NewSlidingCombiner constructs a sliding combiner, rejecting invalid
// configuration.
func NewSlidingCombiner(cfg SlidingCombinerConfig) (*SlidingCombiner, error) {
	def, err := window.NewDef(cfg.Window)
	if err != nil {
		return nil, err
	}
	if cfg.Aggregator.Create == nil || cfg.Aggregator.Combine == nil || cfg.Aggregator.Finish == nil {
		return nil, types.ErrMissingAggregator
	}
	c := &SlidingCombiner{
		def:           def,
		agg:           cfg.Aggregator,
		frames:        btree.NewG[*frameAccs](8, lessFrameAccs),
		nextSeqToEmit: unsetSeq,
	}
	if cfg.Aggregator.HasDeduct() {
		c.sliding = make(map[interface{}]interface{})
	}
	return c, nil
}

// Init implements types.Operator.
func (c *SlidingCombiner) Init(outbox types.Outbox, ctx *types.Context) error {
	return c.init("sliding-combiner", outbox, ctx)
}

// ProcessItem merges inbound frame tuples into the ordered frame index.
// Ingest emits nothing, so it only has to wait out a parked emission from a
// previous watermark step.
func (c *SlidingCombiner) ProcessItem(ordinal int, inbox types.Inbox) bool {
	if !c.flush() {
		return false
	}
	for {
		item := inbox.Peek()
		if item == nil {
			return true
		}
		frame, ok := item.(types.Frame)
		if !ok {
			c.unexpectedItem(item)
		}
		c.merge(frame)
		inbox.Poll()
	}
}

func (c *SlidingCombiner) merge(frame types.Frame) {
	endSeq := frame.Seq + c.def.FrameLength()
	if c.nextSeqToEmit != unsetSeq && endSeq < c.nextSeqToEmit {
		// at least one window this frame would enter is already emitted;
		// upstream guarantees this does not happen in a well-formed stream
		c.log().Warn("sliding combiner %s: dropping frame %d behind emitted window end %d",
			c.name, frame.Seq, c.nextSeqToEmit)
		return
	}
	entry, ok := c.frames.Get(&frameAccs{endSeq: endSeq})
	if !ok {
		entry = &frameAccs{endSeq: endSeq, accs: make(map[interface{}]interface{})}
		c.frames.ReplaceOrInsert(entry)
	}
	acc, ok := entry.accs[frame.Key]
	if !ok {
		acc = c.agg.Create()
	}
	// Combine may mutate its left operand only; the inbound value stays
	// untouched in case the upstream still references it.
	entry.accs[frame.Key] = c.agg.Combine(acc, frame.Value)
}

// ProcessWatermark emits every window whose end is final at wm, ascending
// by window end, then forwards the watermark.
func (c *SlidingCombiner) ProcessWatermark(wm types.Watermark) bool {
	if c.cur == nil {
		c.beginRound(wm, true)
	}
	return c.runRound()
}

// Complete drains all remaining windows as if an infinite watermark had
// arrived, without emitting a watermark item.
func (c *SlidingCombiner) Complete() bool {
	for {
		if c.cur != nil {
			if !c.runRound() {
				return false
			}
			continue
		}
		if c.frames.Len() == 0 {
			if !c.flush() {
				return false
			}
			c.sliding = nil
			return true
		}
		// the last stored frame leaves the window at end max+W, which
		// empties the index
		max, _ := c.frames.Max()
		c.beginRound(types.Watermark(max.endSeq+c.def.WindowLength()), false)
	}
}

// beginRound fixes the emission range for one watermark. The first round
// starts at the lowest stored frame end (or the watermark frame, whichever
// is lower), which guarantees the first emitted window covers at most one
// stored frame: the base case deduct mode builds on.
func (c *SlidingCombiner) beginRound(wm types.Watermark, forwardWm bool) {
	if c.nextSeqToEmit == unsetSeq {
		first := c.def.FloorFrame(wm.Timestamp())
		if min, ok := c.frames.Min(); ok && min.endSeq < first {
			first = min.endSeq
		}
		c.nextSeqToEmit = first
	}
	c.cur = &combinerCursor{
		wm:           wm,
		end:          c.nextSeqToEmit,
		endExclusive: c.def.HigherBoundary(wm.Timestamp()),
		forwardWm:    forwardWm,
	}
}

// runRound drives the cursor until every window tuple of the round and,
// when requested, the watermark itself have left the operator.
func (c *SlidingCombiner) runRound() bool {
	if !c.flush() {
		return false
	}
	for {
		for len(c.cur.queue) > 0 {
			item := c.cur.queue[0]
			c.cur.queue = c.cur.queue[1:]
			if !c.emit(item) {
				return false
			}
		}
		if c.cur.end < c.cur.endExclusive {
			c.slideTo(c.cur.end)
			c.cur.end += c.def.FrameLength()
			continue
		}
		if c.cur.forwardWm && !c.cur.wmQueued {
			c.cur.wmQueued = true
			c.cur.queue = append(c.cur.queue, c.cur.wm)
			continue
		}
		break
	}
	c.nextSeqToEmit = c.cur.endExclusive
	c.cur = nil
	return true
}

// slideTo moves the window to end e: applies the state transition exactly
// once and queues the resulting emissions. The queue, not the tree, carries
// the round across backpressure.
func (c *SlidingCombiner) slideTo(e int64) {
	leaving, _ := c.frames.Delete(&frameAccs{endSeq: e - c.def.WindowLength()})
	if c.sliding != nil {
		c.patchWindow(e, leaving)
		return
	}
	c.recomputeWindow(e)
}

// patchWindow is the deduct strategy: combine the entering frame into the
// live window, deduct the leaving one, drop keys whose accumulator returned
// to the identity.
func (c *SlidingCombiner) patchWindow(e int64, leaving *frameAccs) {
	if entering, ok := c.frames.Get(&frameAccs{endSeq: e}); ok {
		for k, v := range entering.accs {
			acc, ok := c.sliding[k]
			if !ok {
				acc = c.agg.Create()
			}
			c.sliding[k] = c.agg.Combine(acc, v)
		}
	}
	if leaving != nil {
		for k, v := range leaving.accs {
			acc, ok := c.sliding[k]
			if !ok {
				continue
			}
			acc = c.agg.Deduct(acc, v)
			if c.agg.IsEmpty(acc) {
				delete(c.sliding, k)
				continue
			}
			c.sliding[k] = acc
		}
	}
	for k, acc := range c.sliding {
		c.cur.queue = append(c.cur.queue, types.Frame{Seq: e, Key: k, Value: c.agg.Finish(acc)})
	}
}

// recomputeWindow is the fallback strategy for non-invertible aggregations:
// fold every stored frame in (e-W, e] into a fresh window.
func (c *SlidingCombiner) recomputeWindow(e int64) {
	fresh := make(map[interface{}]interface{})
	c.frames.AscendGreaterOrEqual(&frameAccs{endSeq: e - c.def.WindowLength() + 1}, func(entry *frameAccs) bool {
		if entry.endSeq > e {
			return false
		}
		for k, v := range entry.accs {
			acc, ok := fresh[k]
			if !ok {
				acc = c.agg.Create()
			}
			fresh[k] = c.agg.Combine(acc, v)
		}
		return true
	})
	for k, acc := range fresh {
		c.cur.queue = append(c.cur.queue, types.Frame{Seq: e, Key: k, Value: c.agg.Finish(acc)})
	}
}

func (c *SlidingCombiner) String() string {
	mode := "recompute"
	if c.sliding != nil {
		mode = "deduct"
	}
	return fmt.Sprintf("SlidingCombiner(windowLength=%d mode=%s)", c.def.WindowLength(), mode)
}
