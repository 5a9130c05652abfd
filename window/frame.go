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

// Package window provides event-time frame boundary arithmetic shared by
// the windowing operators.
//
// A frame of length L starting at seq s covers event timestamps in
// [s, s+L). Frame starts are aligned downward to multiples of L so that
// boundaries are consistent across data sources; the alignment uses
// mathematical (floored) division and is therefore stable for negative
// timestamps too.
package window

import (
	"github.com/rulego/streamwin/types"
)

// Def is a window definition over a validated WindowConfig.
type Def struct {
	frameLength  int64
	windowLength int64
}

// NewDef builds a window definition, rejecting invalid configuration.
func NewDef(cfg types.WindowConfig) (Def, error) {
	if err := cfg.Validate(); err != nil {
		return Def{}, err
	}
	return Def{
		frameLength:  cfg.FrameLength,
		windowLength: cfg.WindowLength(),
	}, nil
}

// FrameLength returns the frame width in timestamp units.
func (d Def) FrameLength() int64 { return d.frameLength }

// WindowLength returns the total window width in timestamp units.
func (d Def) WindowLength() int64 { return d.windowLength }

// FloorFrame aligns a timestamp down to the start of the frame containing
// it.
func (d Def) FloorFrame(ts int64) int64 {
	return floorDiv(ts, d.frameLength) * d.frameLength
}

// HigherBoundary returns the lowest frame boundary strictly greater than
// ts. Used to bound window emission for a watermark: every window end e
// with e <= ts is final.
func (d Def) HigherBoundary(ts int64) int64 {
	return d.FloorFrame(ts) + d.frameLength
}

// floorDiv divides rounding towards negative infinity. Go's integer
// division truncates towards zero, which would misalign negative
// timestamps.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
