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
Package operator implements the StreamWin windowing operators.

Three operator shapes cover the windowing core:

• FrameGrouper - bins events into fixed-length frames keyed by a grouping
function and emits partial per-frame aggregates when a frame is evicted

• SlidingCombiner - assembles per-frame aggregates into overlapping sliding
windows, patching a materialised window in constant time when the
aggregation supports Deduct, recomputing otherwise

• SessionWindow - groups per-key events into variable-length sessions
delimited by idle gaps and emits each session when the watermark passes its
deadline

The grouper and the combiner form a two-stage pipeline: the grouper emits
(frameSeq, key, partial) tuples which the combiner folds into windows of
framesPerWindow frames. The session operator stands alone.

# Cooperative Processing

Each operator instance is driven single-threaded by a host scheduler
through the types.Operator contract. Emission is cooperative: when the
outbox rejects an item, the operator parks it, remembers its emit cursor
and returns false; the next call resumes exactly where it stopped without
re-emitting. Time progression is entirely watermark-driven; operators keep
no timers and read no clock.

# Memory Bounds

The grouper holds at most framesPerWindow frames of per-key accumulators;
events older than the lowest live frame are dropped silently. The combiner
holds framesPerWindow frames per key plus, in deduct mode, the live window.
The session operator holds only the currently open sessions. Eviction on
watermark progress is the sole reclamation mechanism.
*/
package operator
