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

package aggregator

import "reflect"

// Aggregator is the value-level aggregation contract. See the package
// documentation for the laws each function must obey.
type Aggregator struct {
	// Create constructs the identity accumulator.
	Create func() interface{}
	// Accumulate folds one item into the accumulator. It may mutate and
	// return its first argument.
	Accumulate func(acc, item interface{}) interface{}
	// Combine merges two partial accumulators. It may mutate and return its
	// left operand; the right operand is read-only.
	Combine func(left, right interface{}) interface{}
	// Deduct undoes a previous Combine of right into left. Nil when the
	// aggregation is not invertible.
	Deduct func(left, right interface{}) interface{}
	// Finish converts an accumulator into the result view. Must be free of
	// side effects.
	Finish func(acc interface{}) interface{}
	// Empty reports whether an accumulator equals the identity. Optional;
	// when nil, deep equality against a fresh Create() is used.
	Empty func(acc interface{}) bool
}

// HasDeduct reports whether the aggregation supports constant-time window
// maintenance.
func (a Aggregator) HasDeduct() bool {
	return a.Deduct != nil
}

// IsEmpty reports whether acc equals the identity accumulator. Operators use
// this after Deduct to drop keys that left the window.
func (a Aggregator) IsEmpty(acc interface{}) bool {
	if a.Empty != nil {
		return a.Empty(acc)
	}
	return reflect.DeepEqual(acc, a.Create())
}

// WithoutDeduct returns a copy of the aggregator with Deduct removed,
// forcing operators onto the recompute path. Mainly useful for testing the
// equivalence of the two sliding strategies.
func (a Aggregator) WithoutDeduct() Aggregator {
	a.Deduct = nil
	return a
}
