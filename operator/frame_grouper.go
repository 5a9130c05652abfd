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

	"github.com/rulego/streamwin/aggregator"
	"github.com/rulego/streamwin/extractor"
	"github.com/rulego/streamwin/types"
	"github.com/rulego/streamwin/window"
)

// FrameGrouperConfig configures a frame grouper.
type FrameGrouperConfig struct {
	// Window supplies frameLength and the ring size (framesPerWindow).
	Window types.WindowConfig
	// Timestamp extracts event time. Required.
	Timestamp extractor.TimestampFunc
	// Key extracts the grouping key. Nil groups all events under one key.
	Key extractor.KeyFunc
	// Aggregator folds events into per-frame partial accumulators.
	Aggregator aggregator.Aggregator
}

// FrameGrouper bins events into fixed-length frames keyed by a grouping
// function. It keeps a ring of framesPerWindow slots, one key→accumulator
// map per live frame, and emits one Frame per populated (frame, key) pair
// when a frame is evicted by progress of the input.
type FrameGrouper struct {
	emitter
	def  window.Def
	agg  aggregator.Aggregator
	ts   extractor.TimestampFunc
	key  extractor.KeyFunc
	span int64 // bucketCount * frameLength

	slots []map[interface{}]interface{}

	started bool
	// currentFrameSeq is the highest logical frame observed; events at or
	// below currentFrameSeq-span are late and dropped.
	currentFrameSeq int64
	// frameSeqBase is the lowest frame seq that may still hold state; it is
	// also the eviction cursor, so a backpressured eviction resumes here.
	frameSeqBase int64

	dropped int64
}

// NewFrameGrouper constructs a frame grouper, rejecting invalid
// configuration.
func NewFrameGrouper(cfg FrameGrouperConfig) (*FrameGrouper, error) {
	def, err := window.NewDef(cfg.Window)
	if err != nil {
		return nil, err
	}
	if cfg.Timestamp == nil {
		return nil, types.ErrMissingTimestampFunc
	}
	if cfg.Aggregator.Create == nil || cfg.Aggregator.Accumulate == nil {
		return nil, types.ErrMissingAggregator
	}
	key := cfg.Key
	if key == nil {
		key = extractor.SingleKey
	}
	return &FrameGrouper{
		def:   def,
		agg:   cfg.Aggregator,
		ts:    cfg.Timestamp,
		key:   key,
		span:  cfg.Window.FramesPerWindow * cfg.Window.FrameLength,
		slots: make([]map[interface{}]interface{}, cfg.Window.FramesPerWindow),
	}, nil
}

// Init implements types.Operator.
func (g *FrameGrouper) Init(outbox types.Outbox, ctx *types.Context) error {
	return g.init("frame-grouper", outbox, ctx)
}

// ProcessItem drains events from the inbox, returning false when an
// eviction triggered by frame progress hits backpressure. The event that
// triggered the eviction stays at the inbox head and is re-examined on the
// next call.
func (g *FrameGrouper) ProcessItem(ordinal int, inbox types.Inbox) bool {
	for {
		if !g.flush() {
			return false
		}
		item := inbox.Peek()
		if item == nil {
			return true
		}
		if types.IsWatermark(item) {
			g.unexpectedItem(item)
		}
		ts, err := g.ts(item)
		if err != nil {
			g.log().Warn("frame grouper %s: dropping event: %v", g.name, err)
			inbox.Poll()
			continue
		}
		f := g.def.FloorFrame(ts)
		if !g.started {
			g.started = true
			g.currentFrameSeq = f
			// the lowest legal frame: earlier out-of-order arrivals within
			// the ring still accumulate and must be reachable by eviction
			g.frameSeqBase = f - g.span + g.def.FrameLength()
		}
		if f <= g.currentFrameSeq-g.span {
			// frame already evicted, drop silently
			g.dropped++
			g.log().Debug("frame grouper %s: late event at ts %d dropped (frame %d, current %d)",
				g.name, ts, f, g.currentFrameSeq)
			inbox.Poll()
			continue
		}
		if f > g.currentFrameSeq {
			if !g.evictThrough(f - g.span) {
				return false
			}
			g.currentFrameSeq = f
			if base := f - g.span + g.def.FrameLength(); base > g.frameSeqBase {
				g.frameSeqBase = base
			}
		}
		g.accumulate(f, item)
		inbox.Poll()
	}
}

func (g *FrameGrouper) accumulate(seq int64, item interface{}) {
	idx := g.slotIndex(seq)
	slot := g.slots[idx]
	if slot == nil {
		slot = make(map[interface{}]interface{})
		g.slots[idx] = slot
	}
	k := g.key(item)
	acc, ok := slot[k]
	if !ok {
		acc = g.agg.Create()
	}
	slot[k] = g.agg.Accumulate(acc, item)
}

func (g *FrameGrouper) slotIndex(seq int64) int64 {
	n := int64(len(g.slots))
	idx := (seq / g.def.FrameLength()) % n
	if idx < 0 {
		idx += n
	}
	return idx
}

// evictThrough empties every ring slot with seq <= limit, ascending by seq,
// emitting one Frame per populated entry. Entries are removed as they are
// accepted (or parked), so a backpressured eviction resumes without
// duplicates.
func (g *FrameGrouper) evictThrough(limit int64) bool {
	frameLen := g.def.FrameLength()
	for g.frameSeqBase <= limit {
		if g.frameSeqBase > g.currentFrameSeq {
			// nothing can be stored past the highest observed frame
			g.frameSeqBase = limit + frameLen
			break
		}
		seq := g.frameSeqBase
		slot := g.slots[g.slotIndex(seq)]
		for k, acc := range slot {
			delete(slot, k)
			if !g.emit(types.Frame{Seq: seq, Key: k, Value: acc}) {
				return false
			}
		}
		g.frameSeqBase += frameLen
	}
	return true
}

// ProcessWatermark evicts every frame that is complete at wm (frame end at
// or below the watermark), then forwards the watermark.
func (g *FrameGrouper) ProcessWatermark(wm types.Watermark) bool {
	if !g.flush() {
		return false
	}
	frameLen := g.def.FrameLength()
	limit := g.def.FloorFrame(wm.Timestamp() - frameLen)
	if !g.started {
		g.started = true
		g.currentFrameSeq = limit + g.span
		g.frameSeqBase = limit + frameLen
	} else {
		if !g.evictThrough(limit) {
			return false
		}
		if cur := limit + g.span; cur > g.currentFrameSeq {
			g.currentFrameSeq = cur
		}
	}
	return g.forwardWatermark(wm)
}

// Complete evicts all remaining frames. No watermark is emitted.
func (g *FrameGrouper) Complete() bool {
	if !g.flush() {
		return false
	}
	if !g.started {
		return true
	}
	return g.evictThrough(g.currentFrameSeq)
}

// DroppedEvents returns the number of late events dropped so far. Metrics
// hook at the operator boundary; not part of the processing contract.
func (g *FrameGrouper) DroppedEvents() int64 {
	return g.dropped
}

func (g *FrameGrouper) String() string {
	return fmt.Sprintf("FrameGrouper(frameLength=%d frames=%d)", g.def.FrameLength(), len(g.slots))
}
