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
	"math/rand"
	"testing"

	"github.com/rulego/streamwin/aggregator"
	"github.com/rulego/streamwin/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountSession(t *testing.T, maxGap int64) (*SessionWindow, *testOutbox) {
	t.Helper()
	s, err := NewSessionWindow(SessionWindowConfig{
		Session:    types.SessionConfig{MaxGap: maxGap},
		Timestamp:  tsField,
		Key:        keyField,
		Aggregator: aggregator.Count(),
	})
	require.NoError(t, err)
	outbox := &testOutbox{}
	require.NoError(t, s.Init(outbox, testCtx()))
	return s, outbox
}

func sessionEvents(key string, timestamps ...int64) []interface{} {
	out := make([]interface{}, 0, len(timestamps))
	for _, ts := range timestamps {
		out = append(out, event(ts, key, 1))
	}
	return out
}

func TestSessionWindowConfigValidation(t *testing.T) {
	_, err := NewSessionWindow(SessionWindowConfig{
		Session:    types.SessionConfig{MaxGap: -1},
		Timestamp:  tsField,
		Aggregator: aggregator.Count(),
	})
	require.ErrorIs(t, err, types.ErrInvalidMaxGap)

	_, err = NewSessionWindow(SessionWindowConfig{
		Session:    types.SessionConfig{MaxGap: 10},
		Aggregator: aggregator.Count(),
	})
	require.ErrorIs(t, err, types.ErrMissingTimestampFunc)

	_, err = NewSessionWindow(SessionWindowConfig{
		Session:   types.SessionConfig{MaxGap: 10},
		Timestamp: tsField,
	})
	require.ErrorIs(t, err, types.ErrMissingAggregator)
}

func TestSessionWindowOrderedSingleKey(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	feed(s, sessionEvents("a", 1, 6, 12, 30, 35, 40)...)
	watermark(s, 100)

	sessions := outbox.sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, types.Session{Key: "a", Start: 1, End: 22, Result: int64(3)}, sessions[0])
	assert.Equal(t, types.Session{Key: "a", Start: 30, End: 50, Result: int64(3)}, sessions[1])
	assert.Equal(t, types.Watermark(100), outbox.items[len(outbox.items)-1])
}

func TestSessionWindowDisorderedSingleKey(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	events := sessionEvents("a", 1, 6, 12, 30, 35, 40)
	r := rand.New(rand.NewSource(7))
	r.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

	feed(s, events...)
	watermark(s, 100)

	sessions := outbox.sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, types.Session{Key: "a", Start: 1, End: 22, Result: int64(3)}, sessions[0])
	assert.Equal(t, types.Session{Key: "a", Start: 30, End: 50, Result: int64(3)}, sessions[1])
}

func TestSessionWindowThreeKeys(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	var events []interface{}
	for _, key := range []string{"a", "b", "c"} {
		events = append(events, sessionEvents(key, 1, 6, 12, 30, 35, 40)...)
	}
	r := rand.New(rand.NewSource(42))
	r.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

	feed(s, events...)
	watermark(s, 100)

	sessions := outbox.sessions()
	require.Len(t, sessions, 6)
	perKey := map[interface{}][]types.Session{}
	for _, sess := range sessions {
		perKey[sess.Key] = append(perKey[sess.Key], sess)
	}
	for _, key := range []string{"a", "b", "c"} {
		require.Len(t, perKey[key], 2, "key %s", key)
		assert.Equal(t, types.Session{Key: key, Start: 1, End: 22, Result: int64(3)}, perKey[key][0])
		assert.Equal(t, types.Session{Key: key, Start: 30, End: 50, Result: int64(3)}, perKey[key][1])
	}
}

func TestSessionWindowBridgingEventMergesSessions(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	// two sessions more than maxGap apart, then an out-of-order bridge
	// adjacent to both
	feed(s, event(0, "a", 1), event(15, "a", 1))
	assert.Equal(t, 2, s.OpenSessions())

	feed(s, event(8, "a", 1))
	assert.Equal(t, 1, s.OpenSessions())

	watermark(s, 100)
	sessions := outbox.sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, types.Session{Key: "a", Start: 0, End: 25, Result: int64(3)}, sessions[0])
}

func TestSessionWindowBoundaryEventIsAdjacent(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	// t equals end+maxGap exactly: still the same session
	feed(s, event(5, "a", 1), event(15, "a", 1))
	assert.Equal(t, 1, s.OpenSessions())

	watermark(s, 100)
	sessions := outbox.sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, types.Session{Key: "a", Start: 5, End: 25, Result: int64(2)}, sessions[0])
}

func TestSessionWindowExtendsLeft(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	feed(s, event(50, "a", 1), event(45, "a", 1))
	assert.Equal(t, 1, s.OpenSessions())

	watermark(s, 100)
	sessions := outbox.sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, types.Session{Key: "a", Start: 45, End: 60, Result: int64(2)}, sessions[0])
}

func TestSessionWindowZeroGap(t *testing.T) {
	s, outbox := newCountSession(t, 0)

	// only events sharing a timestamp coalesce
	feed(s, event(1, "a", 1), event(1, "a", 1), event(2, "a", 1), event(5, "a", 1))
	watermark(s, 100)

	sessions := outbox.sessions()
	require.Len(t, sessions, 3)
	assert.Equal(t, types.Session{Key: "a", Start: 1, End: 1, Result: int64(2)}, sessions[0])
	assert.Equal(t, types.Session{Key: "a", Start: 2, End: 2, Result: int64(1)}, sessions[1])
	assert.Equal(t, types.Session{Key: "a", Start: 5, End: 5, Result: int64(1)}, sessions[2])
}

func TestSessionWindowWatermarkKeepsOpenSessions(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	feed(s, event(1, "a", 1), event(30, "a", 1))
	// the session at 1 expires at deadline 11; the one at 30 stays open
	watermark(s, 11)

	sessions := outbox.sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, types.Session{Key: "a", Start: 1, End: 11, Result: int64(1)}, sessions[0])
	assert.Equal(t, 1, s.OpenSessions(), "the session at 30 stays open")
}

func TestSessionWindowExpiryOrderAscendingDeadline(t *testing.T) {
	s, outbox := newCountSession(t, 5)

	feed(s, event(40, "b", 1), event(10, "a", 1), event(25, "c", 1))
	watermark(s, 100)

	sessions := outbox.sessions()
	require.Len(t, sessions, 3)
	assert.Equal(t, "a", sessions[0].Key)
	assert.Equal(t, "c", sessions[1].Key)
	assert.Equal(t, "b", sessions[2].Key)
}

func TestSessionWindowBackpressureResumesWithoutDuplicates(t *testing.T) {
	s, outbox := newCountSession(t, 10)
	outbox.capacity = 1

	feed(s, event(1, "a", 1), event(40, "a", 1), event(80, "a", 1))

	var collected []interface{}
	for !s.ProcessWatermark(200) {
		collected = append(collected, outbox.drain()...)
	}
	collected = append(collected, outbox.drain()...)

	require.Len(t, collected, 4)
	assert.Equal(t, types.Session{Key: "a", Start: 1, End: 11, Result: int64(1)}, collected[0])
	assert.Equal(t, types.Session{Key: "a", Start: 40, End: 50, Result: int64(1)}, collected[1])
	assert.Equal(t, types.Session{Key: "a", Start: 80, End: 90, Result: int64(1)}, collected[2])
	assert.Equal(t, types.Watermark(200), collected[3])
}

func TestSessionWindowCompleteDrainsState(t *testing.T) {
	s, outbox := newCountSession(t, 10)

	feed(s, event(1, "a", 1), event(100, "b", 1))
	for !s.Complete() {
	}

	require.Len(t, outbox.sessions(), 2)
	assert.Empty(t, outbox.watermarks(), "complete emits no watermark")
	assert.Equal(t, 0, s.OpenSessions())
	assert.Empty(t, s.keyToIvs, "no empty per-key maps at rest")
	assert.Equal(t, 0, s.deadlines.Len())
}
