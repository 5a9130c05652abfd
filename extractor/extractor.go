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

// Package extractor builds timestamp, key and value extractors for the
// windowing operators. Field extractors read map-shaped events directly;
// expression extractors compile an expr-lang expression once and evaluate
// it against each event.
package extractor

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"
)

// TimestampFunc extracts the event-time timestamp from an event.
type TimestampFunc func(item interface{}) (int64, error)

// KeyFunc extracts the grouping key from an event. Keys must be comparable.
type KeyFunc func(item interface{}) interface{}

// ValueFunc extracts an arbitrary value from an event.
type ValueFunc func(item interface{}) interface{}

// singletonKey is the key used when no key extractor is configured; all
// events then share one group.
type singletonKey struct{}

func (singletonKey) String() string { return "<all>" }

// SingleKey maps every event to the same group. Operators use it when the
// configuration carries no key extractor.
func SingleKey(interface{}) interface{} {
	return singletonKey{}
}

// TimestampField extracts the timestamp from a named field of a map event,
// coercing with cast.
func TimestampField(name string) TimestampFunc {
	return func(item interface{}) (int64, error) {
		m, ok := item.(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("timestamp field %q: event is %T, not a map", name, item)
		}
		v, ok := m[name]
		if !ok {
			return 0, fmt.Errorf("timestamp field %q not present", name)
		}
		ts, err := cast.ToInt64E(v)
		if err != nil {
			return 0, fmt.Errorf("timestamp field %q: %w", name, err)
		}
		return ts, nil
	}
}

// KeyField extracts the grouping key from a named field of a map event.
// Events without the field fall into the nil-key group.
func KeyField(name string) KeyFunc {
	return func(item interface{}) interface{} {
		if m, ok := item.(map[string]interface{}); ok {
			return m[name]
		}
		return nil
	}
}

// ValueField extracts a named field of a map event.
func ValueField(name string) ValueFunc {
	return func(item interface{}) interface{} {
		if m, ok := item.(map[string]interface{}); ok {
			return m[name]
		}
		return nil
	}
}

// TimestampExpression compiles an expr-lang expression into a timestamp
// extractor. The expression is evaluated with the event as environment and
// must yield an integer, e.g. "ts" or "meta.collectedAt * 1000".
func TimestampExpression(code string) (TimestampFunc, error) {
	program, err := expr.Compile(code,
		expr.AllowUndefinedVariables(),
		expr.AsInt64(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile timestamp expression error: %w", err)
	}
	return func(item interface{}) (int64, error) {
		out, err := expr.Run(program, item)
		if err != nil {
			return 0, fmt.Errorf("timestamp expression: %w", err)
		}
		return cast.ToInt64E(out)
	}, nil
}

// KeyExpression compiles an expr-lang expression into a key extractor, e.g.
// "deviceId" or "region + '/' + deviceId". A failing evaluation falls into
// the nil-key group.
func KeyExpression(code string) (KeyFunc, error) {
	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile key expression error: %w", err)
	}
	return exprValue(program), nil
}

// ValueExpression compiles an expr-lang expression into a value extractor.
func ValueExpression(code string) (ValueFunc, error) {
	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile value expression error: %w", err)
	}
	return ValueFunc(exprValue(program)), nil
}

func exprValue(program *vm.Program) func(item interface{}) interface{} {
	return func(item interface{}) interface{} {
		out, err := expr.Run(program, item)
		if err != nil {
			return nil
		}
		return out
	}
}
