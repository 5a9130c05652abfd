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
	"testing"

	"github.com/rulego/streamwin/aggregator"
	"github.com/rulego/streamwin/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountCombiner(t *testing.T, agg aggregator.Aggregator) (*SlidingCombiner, *testOutbox) {
	t.Helper()
	c, err := NewSlidingCombiner(SlidingCombinerConfig{
		Window:     types.WindowConfig{FrameLength: 10, FramesPerWindow: 3},
		Aggregator: agg,
	})
	require.NoError(t, err)
	outbox := &testOutbox{}
	require.NoError(t, c.Init(outbox, testCtx()))
	return c, outbox
}

func countFrame(seq int64, key string, n int64) types.Frame {
	return types.Frame{Seq: seq, Key: key, Value: n}
}

func TestSlidingCombinerConfigValidation(t *testing.T) {
	_, err := NewSlidingCombiner(SlidingCombinerConfig{
		Window:     types.WindowConfig{FrameLength: 0, FramesPerWindow: 3},
		Aggregator: aggregator.Count(),
	})
	require.ErrorIs(t, err, types.ErrInvalidFrameLength)

	_, err = NewSlidingCombiner(SlidingCombinerConfig{
		Window: types.WindowConfig{FrameLength: 10, FramesPerWindow: 3},
	})
	require.ErrorIs(t, err, types.ErrMissingAggregator)
}

func TestSlidingCombinerDeductMode(t *testing.T) {
	c, outbox := newCountCombiner(t, aggregator.Count())
	require.NotNil(t, c.sliding, "count supports deduct")

	feed(c,
		countFrame(0, "k", 1),
		countFrame(10, "k", 2),
		countFrame(20, "k", 1),
		countFrame(30, "k", 3),
	)
	watermark(c, 40)

	frames := outbox.frames()
	require.Len(t, frames, 4)
	assert.Equal(t, countFrame(10, "k", 1), frames[0])
	assert.Equal(t, countFrame(20, "k", 3), frames[1])
	assert.Equal(t, countFrame(30, "k", 4), frames[2])
	assert.Equal(t, countFrame(40, "k", 6), frames[3])

	// the watermark leaves last
	assert.Equal(t, types.Watermark(40), outbox.items[len(outbox.items)-1])
}

func TestSlidingCombinerRecomputeModeMatchesDeduct(t *testing.T) {
	c, outbox := newCountCombiner(t, aggregator.Count().WithoutDeduct())
	require.Nil(t, c.sliding, "suppressed deduct forces recompute mode")

	feed(c,
		countFrame(0, "k", 1),
		countFrame(10, "k", 2),
		countFrame(20, "k", 1),
		countFrame(30, "k", 3),
	)
	watermark(c, 40)

	frames := outbox.frames()
	require.Len(t, frames, 4)
	assert.Equal(t, countFrame(10, "k", 1), frames[0])
	assert.Equal(t, countFrame(20, "k", 3), frames[1])
	assert.Equal(t, countFrame(30, "k", 4), frames[2])
	assert.Equal(t, countFrame(40, "k", 6), frames[3])
}

func TestSlidingCombinerKeyDropsOutOfWindow(t *testing.T) {
	c, outbox := newCountCombiner(t, aggregator.Count())

	feed(c, countFrame(0, "a", 2), countFrame(10, "b", 1))
	watermark(c, 100)

	// after end 40 key "a" has left the window; after 50 so has "b"
	byEnd := map[int64]map[interface{}]int64{}
	for _, f := range outbox.frames() {
		if byEnd[f.Seq] == nil {
			byEnd[f.Seq] = map[interface{}]int64{}
		}
		byEnd[f.Seq][f.Key] = f.Value.(int64)
	}
	assert.Equal(t, map[interface{}]int64{"a": 2}, byEnd[10])
	assert.Equal(t, map[interface{}]int64{"a": 2, "b": 1}, byEnd[20])
	assert.Equal(t, map[interface{}]int64{"a": 2, "b": 1}, byEnd[30])
	assert.Equal(t, map[interface{}]int64{"b": 1}, byEnd[40])
	assert.NotContains(t, byEnd, int64(50))
	assert.Equal(t, 0, c.frames.Len(), "all frames evicted")
	assert.Empty(t, c.sliding, "live window empty once every key left")
}

func TestSlidingCombinerMergesDuplicateFrames(t *testing.T) {
	c, outbox := newCountCombiner(t, aggregator.Count())

	// two partials for the same (frame, key) combine on ingest
	feed(c, countFrame(0, "k", 2), countFrame(0, "k", 3))
	watermark(c, 10)

	frames := outbox.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, countFrame(10, "k", 5), frames[0])
}

func TestSlidingCombinerSuccessiveWatermarks(t *testing.T) {
	c, outbox := newCountCombiner(t, aggregator.Count())

	feed(c, countFrame(0, "k", 1))
	watermark(c, 10)
	frames := outbox.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, countFrame(10, "k", 1), frames[0])
	outbox.drain()

	feed(c, countFrame(10, "k", 2))
	watermark(c, 20)
	frames = outbox.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, countFrame(20, "k", 3), frames[0])

	// no window end is ever emitted twice
	watermark(c, 20)
	assert.Empty(t, outbox.frames()[1:])
}

func TestSlidingCombinerBackpressureResumesWithoutDuplicates(t *testing.T) {
	c, outbox := newCountCombiner(t, aggregator.Count())
	outbox.capacity = 1

	feed(c, countFrame(0, "k", 1), countFrame(10, "k", 2))

	var collected []interface{}
	for !c.ProcessWatermark(20) {
		collected = append(collected, outbox.drain()...)
	}
	collected = append(collected, outbox.drain()...)

	require.Len(t, collected, 3)
	assert.Equal(t, countFrame(10, "k", 1), collected[0])
	assert.Equal(t, countFrame(20, "k", 3), collected[1])
	assert.Equal(t, types.Watermark(20), collected[2])
}

func TestSlidingCombinerCompleteDrainsState(t *testing.T) {
	for _, mode := range []struct {
		name string
		agg  aggregator.Aggregator
	}{
		{"deduct", aggregator.Count()},
		{"recompute", aggregator.Count().WithoutDeduct()},
	} {
		t.Run(mode.name, func(t *testing.T) {
			c, outbox := newCountCombiner(t, mode.agg)

			feed(c, countFrame(0, "k", 1), countFrame(10, "k", 2))
			for !c.Complete() {
			}

			frames := outbox.frames()
			require.NotEmpty(t, frames)
			assert.Equal(t, countFrame(10, "k", 1), frames[0])
			assert.Empty(t, outbox.watermarks(), "complete emits no watermark")
			assert.Equal(t, 0, c.frames.Len())
		})
	}
}
