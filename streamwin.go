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

/*
Package streamwin is the stream windowing core of a data-flow engine: a set
of per-processor operators that group timestamped events into time windows,
maintain per-key incremental aggregates, and emit finalized window results
as watermarks arrive.

# Operators

• Frame grouper - bins events into fixed-length frames per grouping key and
emits partial per-frame aggregates on eviction

• Sliding combiner - assembles per-frame partials into overlapping sliding
windows, with constant-time deduct maintenance when the aggregation is
invertible

• Session window - groups per-key events into variable-length sessions
delimited by idle gaps

The operators are pure in-memory components driven by a host scheduler
through the types.Operator contract; this package wires them into an
in-process stream.Pipeline for convenient embedding.

# Quick Start

	sw := streamwin.New(streamwin.WithLogLevel(logger.WARN))

	p, err := sw.SlidingPipeline(
		types.WindowConfig{FrameLength: 10, FramesPerWindow: 3},
		extractor.TimestampField("ts"),
		extractor.KeyField("device"),
		aggregator.Sum(extractor.ValueField("val")),
	)
	if err != nil {
		// invalid configuration
	}
	p.AddSink(func(item interface{}) { ... })
	p.Start()
*/
package streamwin

import (
	"github.com/rulego/streamwin/aggregator"
	"github.com/rulego/streamwin/extractor"
	"github.com/rulego/streamwin/logger"
	"github.com/rulego/streamwin/operator"
	"github.com/rulego/streamwin/stream"
	"github.com/rulego/streamwin/types"
)

// StreamWin builds windowing pipelines with shared configuration.
type StreamWin struct {
	log        logger.Logger
	bufferSize int
}

// New creates a StreamWin instance with the given options applied.
func New(opts ...Option) *StreamWin {
	sw := &StreamWin{
		log: logger.GetDefault(),
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// SlidingPipeline wires a frame grouper and a sliding combiner into a
// two-stage pipeline emitting one Frame per (window end, key).
func (sw *StreamWin) SlidingPipeline(
	cfg types.WindowConfig,
	ts extractor.TimestampFunc,
	key extractor.KeyFunc,
	agg aggregator.Aggregator,
) (*stream.Pipeline, error) {
	grouper, err := operator.NewFrameGrouper(operator.FrameGrouperConfig{
		Window:     cfg,
		Timestamp:  ts,
		Key:        key,
		Aggregator: agg,
	})
	if err != nil {
		return nil, err
	}
	combiner, err := operator.NewSlidingCombiner(operator.SlidingCombinerConfig{
		Window:     cfg,
		Aggregator: agg,
	})
	if err != nil {
		return nil, err
	}
	return stream.NewPipeline("sliding", []types.Operator{grouper, combiner}, sw.streamOptions()...), nil
}

// TumblingPipeline wires a frame grouper alone: with one frame per window a
// frame is a tumbling window, emitted on eviction.
func (sw *StreamWin) TumblingPipeline(
	frameLength int64,
	ts extractor.TimestampFunc,
	key extractor.KeyFunc,
	agg aggregator.Aggregator,
) (*stream.Pipeline, error) {
	grouper, err := operator.NewFrameGrouper(operator.FrameGrouperConfig{
		Window:     types.WindowConfig{FrameLength: frameLength, FramesPerWindow: 1},
		Timestamp:  ts,
		Key:        key,
		Aggregator: agg,
	})
	if err != nil {
		return nil, err
	}
	return stream.NewPipeline("tumbling", []types.Operator{grouper}, sw.streamOptions()...), nil
}

// SessionPipeline wires a standalone session window operator emitting one
// Session per closed session.
func (sw *StreamWin) SessionPipeline(
	cfg types.SessionConfig,
	ts extractor.TimestampFunc,
	key extractor.KeyFunc,
	agg aggregator.Aggregator,
) (*stream.Pipeline, error) {
	session, err := operator.NewSessionWindow(operator.SessionWindowConfig{
		Session:    cfg,
		Timestamp:  ts,
		Key:        key,
		Aggregator: agg,
	})
	if err != nil {
		return nil, err
	}
	return stream.NewPipeline("session", []types.Operator{session}, sw.streamOptions()...), nil
}

func (sw *StreamWin) streamOptions() []stream.Option {
	opts := []stream.Option{stream.WithLogger(sw.log)}
	if sw.bufferSize > 0 {
		opts = append(opts, stream.WithBufferSize(sw.bufferSize))
	}
	return opts
}
