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
Package stream provides an in-process pipeline driver for StreamWin
operators.

A Pipeline chains operators behind buffered channels and pumps each one on
its own goroutine, honouring the cooperative operator contract: items and
watermarks are handed to the operator one at a time, a false return is
retried after a short backoff, and Complete is driven at end-of-input until
it reports done. Emitted items reach registered sinks in order.

The driver is a single-process host for tests, examples and embedding; the
operators themselves never depend on it and can be driven by any scheduler
honouring the types.Operator contract.

# Usage

	grouper, _ := operator.NewFrameGrouper(...)
	combiner, _ := operator.NewSlidingCombiner(...)

	p := stream.NewPipeline("sliding", []types.Operator{grouper, combiner})
	p.AddSink(func(item interface{}) { ... })
	if err := p.Start(); err != nil { ... }

	p.Emit(event)
	p.EmitWatermark(types.Watermark(40))
	p.Close() // drains, completes operators, stops all goroutines
*/
package stream
