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

import (
	"github.com/spf13/cast"
)

// ValueFunc extracts the value to aggregate from an event. A nil ValueFunc
// aggregates the event itself. An alias, so any extractor-produced function
// fits without conversion.
type ValueFunc = func(item interface{}) interface{}

func extract(value ValueFunc, item interface{}) interface{} {
	if value == nil {
		return item
	}
	return value(item)
}

// Sum aggregates the numeric sum of event values. Values that do not
// convert to a number are ignored. Supports Deduct.
func Sum(value ValueFunc) Aggregator {
	return Aggregator{
		Create: func() interface{} { return float64(0) },
		Accumulate: func(acc, item interface{}) interface{} {
			v, err := cast.ToFloat64E(extract(value, item))
			if err != nil {
				return acc
			}
			return acc.(float64) + v
		},
		Combine: func(left, right interface{}) interface{} {
			return left.(float64) + right.(float64)
		},
		Deduct: func(left, right interface{}) interface{} {
			return left.(float64) - right.(float64)
		},
		Finish: func(acc interface{}) interface{} { return acc },
	}
}

// Count aggregates the number of events. Supports Deduct.
func Count() Aggregator {
	return Aggregator{
		Create: func() interface{} { return int64(0) },
		Accumulate: func(acc, item interface{}) interface{} {
			return acc.(int64) + 1
		},
		Combine: func(left, right interface{}) interface{} {
			return left.(int64) + right.(int64)
		},
		Deduct: func(left, right interface{}) interface{} {
			return left.(int64) - right.(int64)
		},
		Finish: func(acc interface{}) interface{} { return acc },
	}
}

// avgAcc is the average accumulator. A comparable value type so that the
// default identity check works.
type avgAcc struct {
	Sum   float64
	Count int64
}

// Avg aggregates the numeric mean of event values. Finish yields nil when no
// value converted. Supports Deduct.
func Avg(value ValueFunc) Aggregator {
	return Aggregator{
		Create: func() interface{} { return avgAcc{} },
		Accumulate: func(acc, item interface{}) interface{} {
			v, err := cast.ToFloat64E(extract(value, item))
			if err != nil {
				return acc
			}
			a := acc.(avgAcc)
			a.Sum += v
			a.Count++
			return a
		},
		Combine: func(left, right interface{}) interface{} {
			l, r := left.(avgAcc), right.(avgAcc)
			l.Sum += r.Sum
			l.Count += r.Count
			return l
		},
		Deduct: func(left, right interface{}) interface{} {
			l, r := left.(avgAcc), right.(avgAcc)
			l.Sum -= r.Sum
			l.Count -= r.Count
			return l
		},
		Finish: func(acc interface{}) interface{} {
			a := acc.(avgAcc)
			if a.Count == 0 {
				return nil
			}
			return a.Sum / float64(a.Count)
		},
	}
}

// extremeAcc tracks a single extreme value. Valid distinguishes "no values
// yet" from a genuine zero.
type extremeAcc struct {
	Value float64
	Valid bool
}

// Min aggregates the numeric minimum of event values. Not invertible, so no
// Deduct; the sliding combiner falls back to recomputation.
func Min(value ValueFunc) Aggregator {
	return extreme(value, func(a, b float64) bool { return a < b })
}

// Max aggregates the numeric maximum of event values. Not invertible, so no
// Deduct.
func Max(value ValueFunc) Aggregator {
	return extreme(value, func(a, b float64) bool { return a > b })
}

func extreme(value ValueFunc, better func(a, b float64) bool) Aggregator {
	return Aggregator{
		Create: func() interface{} { return extremeAcc{} },
		Accumulate: func(acc, item interface{}) interface{} {
			v, err := cast.ToFloat64E(extract(value, item))
			if err != nil {
				return acc
			}
			a := acc.(extremeAcc)
			if !a.Valid || better(v, a.Value) {
				a.Value = v
				a.Valid = true
			}
			return a
		},
		Combine: func(left, right interface{}) interface{} {
			l, r := left.(extremeAcc), right.(extremeAcc)
			if !r.Valid {
				return l
			}
			if !l.Valid || better(r.Value, l.Value) {
				return r
			}
			return l
		},
		Finish: func(acc interface{}) interface{} {
			a := acc.(extremeAcc)
			if !a.Valid {
				return nil
			}
			return a.Value
		},
	}
}

// Collect gathers the raw event values into a slice in arrival order. No
// Deduct. Accumulator equality is structural, so the default identity check
// (IsEmpty) still works on its accumulators.
func Collect(value ValueFunc) Aggregator {
	return Aggregator{
		Create: func() interface{} { return []interface{}(nil) },
		Accumulate: func(acc, item interface{}) interface{} {
			return append(acc.([]interface{}), extract(value, item))
		},
		Combine: func(left, right interface{}) interface{} {
			return append(left.([]interface{}), right.([]interface{})...)
		},
		Finish: func(acc interface{}) interface{} {
			vals := acc.([]interface{})
			out := make([]interface{}, len(vals))
			copy(out, vals)
			return out
		},
	}
}

// Tuple composes n aggregators into one operating over an n-slot
// accumulator. Every constituent folds the same event. Deduct is available
// iff every constituent provides it.
func Tuple(aggs ...Aggregator) Aggregator {
	deductible := len(aggs) > 0
	for _, a := range aggs {
		if !a.HasDeduct() {
			deductible = false
			break
		}
	}
	t := Aggregator{
		Create: func() interface{} {
			slots := make([]interface{}, len(aggs))
			for i, a := range aggs {
				slots[i] = a.Create()
			}
			return slots
		},
		Accumulate: func(acc, item interface{}) interface{} {
			slots := acc.([]interface{})
			for i, a := range aggs {
				slots[i] = a.Accumulate(slots[i], item)
			}
			return slots
		},
		Combine: func(left, right interface{}) interface{} {
			l, r := left.([]interface{}), right.([]interface{})
			for i, a := range aggs {
				l[i] = a.Combine(l[i], r[i])
			}
			return l
		},
		Finish: func(acc interface{}) interface{} {
			slots := acc.([]interface{})
			out := make([]interface{}, len(aggs))
			for i, a := range aggs {
				out[i] = a.Finish(slots[i])
			}
			return out
		},
		Empty: func(acc interface{}) bool {
			slots := acc.([]interface{})
			for i, a := range aggs {
				if !a.IsEmpty(slots[i]) {
					return false
				}
			}
			return true
		},
	}
	if deductible {
		t.Deduct = func(left, right interface{}) interface{} {
			l, r := left.([]interface{}), right.([]interface{})
			for i, a := range aggs {
				l[i] = a.Deduct(l[i], r[i])
			}
			return l
		}
	}
	return t
}
