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

package types

import (
	"errors"
	"fmt"
)

// Configuration errors surfaced at operator construction. An operator with an
// invalid configuration never starts.
var (
	ErrInvalidFrameLength     = errors.New("frame length must be positive")
	ErrInvalidFramesPerWindow = errors.New("frames per window must be at least 1")
	ErrInvalidMaxGap          = errors.New("max gap must not be negative")
	ErrMissingTimestampFunc   = errors.New("timestamp extractor is required")
	ErrMissingAggregator      = errors.New("aggregator is required")
)

// ErrUnexpectedItem marks a programming error: an inbox item of a kind the
// operator does not consume. Operators fail fast on it.
var ErrUnexpectedItem = errors.New("unexpected inbox item type")

// WindowConfig describes a fixed-frame window layout shared by the frame
// grouper and the sliding combiner.
type WindowConfig struct {
	// FrameLength is the frame width in timestamp units. Must be > 0.
	FrameLength int64 `json:"frameLength"`
	// FramesPerWindow is the number of frames a sliding window spans, and
	// the grouper's ring size. Must be >= 1.
	FramesPerWindow int64 `json:"framesPerWindow"`
}

// WindowLength returns the total window width in timestamp units.
func (c WindowConfig) WindowLength() int64 {
	return c.FrameLength * c.FramesPerWindow
}

// Validate rejects structurally invalid window configuration.
func (c WindowConfig) Validate() error {
	if c.FrameLength <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFrameLength, c.FrameLength)
	}
	if c.FramesPerWindow < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidFramesPerWindow, c.FramesPerWindow)
	}
	return nil
}

// SessionConfig describes session window behaviour.
type SessionConfig struct {
	// MaxGap is the allowed idle time between two events of the same
	// session. Zero yields degenerate single-timestamp sessions.
	MaxGap int64 `json:"maxGap"`
}

// Validate rejects structurally invalid session configuration.
func (c SessionConfig) Validate() error {
	if c.MaxGap < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxGap, c.MaxGap)
	}
	return nil
}
