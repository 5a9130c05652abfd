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
Package types defines the shared data model and runtime contracts for
StreamWin operators.

This package holds the value types that cross operator boundaries and the
contracts an operator fulfils towards its host scheduler. It has no
dependencies on the operator implementations.

# Core Types

• Watermark - in-band monotonic event-time marker
• Frame - per-frame partial aggregate (seq, key, value)
• Session - finalized session window result
• Inbox / Outbox - FIFO input and accept-or-reject output contracts
• Operator - cooperative single-threaded operator lifecycle
• Context - per-instance runtime context (identity, logger)

# Item Model

Operators exchange opaque items. A Watermark is a distinguished in-band
variant; everything else is data. The frame grouper and the session
operator consume raw events, the sliding combiner consumes Frame values
produced upstream.

# Operator Lifecycle

	op.Init(outbox, ctx)          // once, before any input
	op.ProcessItem(0, inbox)      // repeatedly, data at inbox head
	op.ProcessWatermark(wm)       // watermark at stream head
	op.Complete()                 // end of stream

Processing methods return false when the outbox rejected an emission; the
host must call the same method again later to resume. An operator never
blocks and never touches the outbox again within a step once it has been
rejected.
*/
package types
