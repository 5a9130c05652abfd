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
Package aggregator defines the incremental aggregation contract used by all
StreamWin operators, together with a set of built-in aggregations.

# Contract

An Aggregator is a bundle of function values:

	Create     () -> acc                construct the identity accumulator
	Accumulate (acc, item) -> acc       fold one item, may mutate acc
	Combine    (left, right) -> acc     associative commutative merge, may mutate left
	Deduct     (left, right) -> acc     optional inverse of Combine
	Finish     (acc) -> result          pure conversion to the result view

Combine must be commutative and associative. When Deduct is present it must
be the left inverse of Combine: Deduct(Combine(a, b), b) == a. Operators use
equality with a freshly created accumulator to detect that a key has fully
dropped out of a window; aggregators whose accumulators have no meaningful
value equality must supply an Empty predicate.

# Built-in Aggregations

• Sum, Count, Avg - numeric, support Deduct
• Min, Max - numeric, no Deduct (not invertible)
• Collect - gathers raw values, no Deduct
• Tuple - composes n aggregators over an n-slot accumulator; supports
Deduct iff every constituent does

Numeric built-ins coerce event values with the cast package, ignoring
values that do not convert, matching the engine's tolerant treatment of
mixed payloads.
*/
package aggregator
