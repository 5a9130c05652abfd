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

package stream

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rulego/streamwin/logger"
	"github.com/rulego/streamwin/types"
	"github.com/rulego/streamwin/utils/queue"
)

var (
	// ErrNoOperators is returned when a pipeline is built without stages.
	ErrNoOperators = errors.New("pipeline needs at least one operator")
	// ErrAlreadyStarted is returned by Start on a running pipeline.
	ErrAlreadyStarted = errors.New("pipeline already started")
)

// defaultBufferSize is the per-stage channel capacity.
const defaultBufferSize = 1024

// backoffInterval is how long a stage waits before retrying a
// backpressured operator call.
const backoffInterval = 100 * time.Microsecond

// Sink receives every item emitted by the last pipeline stage, watermarks
// included, in emission order.
type Sink func(item interface{})

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBufferSize sets the per-stage channel capacity.
func WithBufferSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithLogger sets the pipeline logger, propagated to every operator
// context.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// Pipeline drives a chain of operators over buffered channels, one
// goroutine per stage.
type Pipeline struct {
	id      string
	name    string
	log     logger.Logger
	ops     []types.Operator
	bufSize int

	input chan interface{}
	wg    sync.WaitGroup

	sinksMux sync.RWMutex
	sinks    []Sink

	started bool
	closed  bool

	inputCount  int64
	outputCount int64
}

// NewPipeline builds a pipeline over the given operator chain. The chain is
// started with Start and torn down with Close.
func NewPipeline(name string, ops []types.Operator, opts ...Option) *Pipeline {
	p := &Pipeline{
		id:      uuid.NewString(),
		name:    name,
		log:     logger.GetDefault(),
		ops:     ops,
		bufSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the pipeline instance identifier.
func (p *Pipeline) ID() string { return p.id }

// AddSink registers a sink for emitted items. Safe to call before Start;
// after Start additions still apply to subsequent emissions.
func (p *Pipeline) AddSink(sink Sink) {
	p.sinksMux.Lock()
	p.sinks = append(p.sinks, sink)
	p.sinksMux.Unlock()
}

// Start initializes every operator and spins up the stage goroutines.
func (p *Pipeline) Start() error {
	if len(p.ops) == 0 {
		return ErrNoOperators
	}
	if p.started {
		return ErrAlreadyStarted
	}
	p.input = make(chan interface{}, p.bufSize)

	in := p.input
	for i, op := range p.ops {
		out := make(chan interface{}, p.bufSize)
		ctx := &types.Context{
			InstanceID: p.id + "/" + strconv.Itoa(i),
			Logger:     p.log,
		}
		if err := op.Init(&chanOutbox{ch: out}, ctx); err != nil {
			return err
		}
		p.wg.Add(1)
		go p.runStage(op, in, out)
		in = out
	}

	p.wg.Add(1)
	go p.dispatch(in)

	p.started = true
	p.log.Debug("pipeline %s (%s) started with %d stages", p.name, p.id, len(p.ops))
	return nil
}

// Emit feeds one event into the pipeline. Blocks while the input buffer is
// full.
func (p *Pipeline) Emit(event interface{}) {
	atomic.AddInt64(&p.inputCount, 1)
	p.input <- event
}

// EmitWatermark feeds a watermark into the pipeline.
func (p *Pipeline) EmitWatermark(wm types.Watermark) {
	p.input <- wm
}

// Close ends the input stream, drives every operator's Complete and waits
// for all stage goroutines to finish. Emitted state reaches the sinks
// before Close returns.
func (p *Pipeline) Close() {
	if !p.started || p.closed {
		return
	}
	p.closed = true
	close(p.input)
	p.wg.Wait()
	p.log.Debug("pipeline %s (%s) closed: in=%d out=%d",
		p.name, p.id, atomic.LoadInt64(&p.inputCount), atomic.LoadInt64(&p.outputCount))
}

// InputCount returns the number of events accepted by Emit.
func (p *Pipeline) InputCount() int64 { return atomic.LoadInt64(&p.inputCount) }

// OutputCount returns the number of non-watermark items delivered to sinks.
func (p *Pipeline) OutputCount() int64 { return atomic.LoadInt64(&p.outputCount) }

// runStage pumps one operator: data items through a single-slot inbox,
// watermarks directly, each retried until the operator reports progress
// complete.
func (p *Pipeline) runStage(op types.Operator, in <-chan interface{}, out chan<- interface{}) {
	defer p.wg.Done()
	defer close(out)

	inbox := queue.NewQueue(1)
	for item := range in {
		if wm, ok := item.(types.Watermark); ok {
			for !op.ProcessWatermark(wm) {
				time.Sleep(backoffInterval)
			}
			continue
		}
		_ = inbox.Push(item)
		for !op.ProcessItem(0, inbox) {
			time.Sleep(backoffInterval)
		}
	}
	for !op.Complete() {
		time.Sleep(backoffInterval)
	}
}

// dispatch delivers the final stage's output to the sinks.
func (p *Pipeline) dispatch(in <-chan interface{}) {
	defer p.wg.Done()
	for item := range in {
		if !types.IsWatermark(item) {
			atomic.AddInt64(&p.outputCount, 1)
		}
		p.sinksMux.RLock()
		sinks := p.sinks
		p.sinksMux.RUnlock()
		for _, sink := range sinks {
			sink(item)
		}
	}
}

// chanOutbox adapts a buffered channel to the accept-or-reject Outbox
// contract without ever blocking the operator.
type chanOutbox struct {
	ch chan<- interface{}
}

func (o *chanOutbox) Offer(item interface{}) bool {
	select {
	case o.ch <- item:
		return true
	default:
		return false
	}
}
