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
	"github.com/rulego/streamwin/extractor"
	"github.com/rulego/streamwin/types"
)

// SessionWindowConfig configures a session window operator.
type SessionWindowConfig struct {
	// Session supplies the maximum idle gap between events of one session.
	Session types.SessionConfig
	// Timestamp extracts event time. Required.
	Timestamp extractor.TimestampFunc
	// Key extracts the grouping key. Nil groups all events under one key.
	Key extractor.KeyFunc
	// Aggregator folds events into per-session accumulators.
	Aggregator aggregator.Aggregator
}

// sessionIv is one open session: a closed interval of event timestamps plus
// its accumulator. Per key, stored intervals are pairwise non-overlapping
// and separated by more than maxGap; anything closer is merged on ingest.
type sessionIv struct {
	start int64
	end   int64
	acc   interface{}
}

func lessSessionIv(a, b *sessionIv) bool { return a.start < b.start }

// deadlineEntry indexes the open sessions expiring at one deadline
// (end+maxGap). It maps each key to the start of its interval so that
// expiry can delete the interval without scanning the per-key map.
type deadlineEntry struct {
	deadline int64
	keys     map[interface{}]int64
}

func lessDeadline(a, b *deadlineEntry) bool { return a.deadline < b.deadline }

// SessionWindow groups per-key events into variable-length sessions
// delimited by idle gaps longer than maxGap, and emits each session once
// the watermark passes its deadline. Out-of-order events extend sessions in
// either direction and may bridge two open sessions into one.
type SessionWindow struct {
	emitter
	maxGap int64
	agg    aggregator.Aggregator
	ts     extractor.TimestampFunc
	key    extractor.KeyFunc

	keyToIvs  map[interface{}]*btree.BTreeG[*sessionIv]
	deadlines *btree.BTreeG[*deadlineEntry]
}

// NewSessionWindow constructs a session window operator, rejecting invalid
// configuration.
func NewSessionWindow(cfg SessionWindowConfig) (*SessionWindow, error) {
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timestamp == nil {
		return nil, types.ErrMissingTimestampFunc
	}
	if cfg.Aggregator.Create == nil || cfg.Aggregator.Accumulate == nil ||
		cfg.Aggregator.Combine == nil || cfg.Aggregator.Finish == nil {
		return nil, types.ErrMissingAggregator
	}
	key := cfg.Key
	if key == nil {
		key = extractor.SingleKey
	}
	return &SessionWindow{
		maxGap:    cfg.Session.MaxGap,
		agg:       cfg.Aggregator,
		ts:        cfg.Timestamp,
		key:       key,
		keyToIvs:  make(map[interface{}]*btree.BTreeG[*sessionIv]),
		deadlines: btree.NewG[*deadlineEntry](8, lessDeadline),
	}, nil
}

// Init implements types.Operator.
func (s *SessionWindow) Init(outbox types.Outbox, ctx *types.Context) error {
	return s.init("session-window", outbox, ctx)
}

// ProcessItem folds events into open sessions. Ingest emits nothing; it
// only waits out a parked emission from a previous watermark step.
func (s *SessionWindow) ProcessItem(ordinal int, inbox types.Inbox) bool {
	if !s.flush() {
		return false
	}
	for {
		item := inbox.Peek()
		if item == nil {
			return true
		}
		if types.IsWatermark(item) {
			s.unexpectedItem(item)
		}
		t, err := s.ts(item)
		if err != nil {
			s.log().Warn("session window %s: dropping event: %v", s.name, err)
			inbox.Poll()
			continue
		}
		s.ingest(t, s.key(item), item)
		inbox.Poll()
	}
}

// ingest locates the sessions adjacent to t for the key and creates,
// extends or merges as needed.
func (s *SessionWindow) ingest(t int64, k, item interface{}) {
	tree, ok := s.keyToIvs[k]
	if !ok {
		tree = btree.NewG[*sessionIv](8, lessSessionIv)
		s.keyToIvs[k] = tree
	}

	// prev: greatest start <= t; next: smallest start > t
	var prev, next *sessionIv
	tree.DescendLessOrEqual(&sessionIv{start: t}, func(iv *sessionIv) bool {
		prev = iv
		return false
	})
	tree.AscendGreaterOrEqual(&sessionIv{start: t}, func(iv *sessionIv) bool {
		if iv == prev {
			return true
		}
		next = iv
		return false
	})
	if prev != nil && prev.end+s.maxGap < t {
		prev = nil
	}
	if next != nil && next.start-s.maxGap > t {
		next = nil
	}

	switch {
	case prev == nil && next == nil:
		iv := &sessionIv{start: t, end: t, acc: s.agg.Accumulate(s.agg.Create(), item)}
		tree.ReplaceOrInsert(iv)
		s.deadlineAdd(iv.end+s.maxGap, k, iv.start)

	case prev != nil && next == nil:
		if t > prev.end {
			s.deadlineRemove(prev.end+s.maxGap, k)
			prev.end = t
			s.deadlineAdd(prev.end+s.maxGap, k, prev.start)
		}
		prev.acc = s.agg.Accumulate(prev.acc, item)

	case prev == nil && next != nil:
		// extension to the left changes the ordering key: reinsert
		tree.Delete(next)
		s.deadlineRemove(next.end+s.maxGap, k)
		next.start = t
		tree.ReplaceOrInsert(next)
		s.deadlineAdd(next.end+s.maxGap, k, next.start)
		next.acc = s.agg.Accumulate(next.acc, item)

	default:
		// the event bridges two sessions: fold next into prev
		tree.Delete(next)
		s.deadlineRemove(next.end+s.maxGap, k)
		s.deadlineRemove(prev.end+s.maxGap, k)
		if next.end > prev.end {
			prev.end = next.end
		}
		prev.acc = s.agg.Combine(prev.acc, next.acc)
		prev.acc = s.agg.Accumulate(prev.acc, item)
		s.deadlineAdd(prev.end+s.maxGap, k, prev.start)
	}
}

func (s *SessionWindow) deadlineAdd(deadline int64, k interface{}, start int64) {
	entry, ok := s.deadlines.Get(&deadlineEntry{deadline: deadline})
	if !ok {
		entry = &deadlineEntry{deadline: deadline, keys: make(map[interface{}]int64)}
		s.deadlines.ReplaceOrInsert(entry)
	}
	entry.keys[k] = start
}

func (s *SessionWindow) deadlineRemove(deadline int64, k interface{}) {
	entry, ok := s.deadlines.Get(&deadlineEntry{deadline: deadline})
	if !ok {
		return
	}
	delete(entry.keys, k)
	if len(entry.keys) == 0 {
		s.deadlines.Delete(entry)
	}
}

// ProcessWatermark closes every session whose deadline is at or below wm,
// ascending by deadline, then forwards the watermark.
func (s *SessionWindow) ProcessWatermark(wm types.Watermark) bool {
	if !s.flush() {
		return false
	}
	if !s.expire(wm.Timestamp()) {
		return false
	}
	return s.forwardWatermark(wm)
}

// expire walks the deadline index up to limit. Sessions are detached from
// state before emission, so a backpressured walk resumes with the rejected
// session parked and nothing duplicated or lost.
func (s *SessionWindow) expire(limit int64) bool {
	for {
		entry, ok := s.deadlines.Min()
		if !ok || entry.deadline > limit {
			return true
		}
		if len(entry.keys) == 0 {
			s.deadlines.Delete(entry)
			continue
		}
		var k interface{}
		var start int64
		for kk, st := range entry.keys {
			k, start = kk, st
			break
		}
		delete(entry.keys, k)

		tree := s.keyToIvs[k]
		iv, found := tree.Delete(&sessionIv{start: start})
		if !found {
			s.log().Error("session window %s: deadline %d points at missing session (key=%v start=%d)",
				s.name, entry.deadline, k, start)
			continue
		}
		if tree.Len() == 0 {
			delete(s.keyToIvs, k)
		}
		out := types.Session{
			Key:    k,
			Start:  iv.start,
			End:    entry.deadline,
			Result: s.agg.Finish(iv.acc),
		}
		if !s.emit(out) {
			return false
		}
	}
}

// Complete closes all remaining sessions. No watermark is emitted.
func (s *SessionWindow) Complete() bool {
	if !s.flush() {
		return false
	}
	return s.expire(math.MaxInt64)
}

// OpenSessions returns the number of currently open sessions. Diagnostics
// hook; not part of the processing contract.
func (s *SessionWindow) OpenSessions() int {
	n := 0
	for _, tree := range s.keyToIvs {
		n += tree.Len()
	}
	return n
}

func (s *SessionWindow) String() string {
	return fmt.Sprintf("SessionWindow(maxGap=%d)", s.maxGap)
}
