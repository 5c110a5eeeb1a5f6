/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "mangatrans/internal/vector"

// Config holds the tunables of the annotation canvas.
type Config struct {
	MinZoom  float64
	MaxZoom  float64
	ZoomStep float64
	// PanningThreshold is the pointer travel, in screen pixels, after which a
	// background press becomes a pan instead of a tap.
	PanningThreshold float64
	// MarkerSize is the size of a newly created marker as a fraction of the image.
	MarkerSize vector.Size
	// MarkerNudge is subtracted from the tap fraction so the tap point lands
	// near the new marker's top-left.
	MarkerNudge vector.Pt
	// EditorGap is the horizontal distance in pixels between a marker and the docked editor.
	EditorGap float64
	// EditorMargin is the minimum distance in viewport percent between the editor and the window edge.
	EditorMargin float64
}

func DefaultConfig() Config {
	return Config{
		MinZoom:          0.2,
		MaxZoom:          5,
		ZoomStep:         0.12,
		PanningThreshold: 5,
		MarkerSize:       vector.Size{W: 0.12, H: 0.08},
		MarkerNudge:      vector.P(0.02, 0.02),
		EditorGap:        12,
		EditorMargin:     2,
	}
}

// withDefaults fills zero or inconsistent values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	// a page always opens at zoom 1, so the range must contain it
	if c.MinZoom <= 0 || c.MinZoom > 1 {
		c.MinZoom = d.MinZoom
	}
	if c.MaxZoom < 1 {
		c.MaxZoom = d.MaxZoom
	}
	if c.ZoomStep <= 0 {
		c.ZoomStep = d.ZoomStep
	}
	if c.PanningThreshold < 0 {
		c.PanningThreshold = d.PanningThreshold
	}
	if c.MarkerSize.Empty() {
		c.MarkerSize = d.MarkerSize
	}
	c.MarkerSize.W = vector.Clamp(c.MarkerSize.W, 0, 1)
	c.MarkerSize.H = vector.Clamp(c.MarkerSize.H, 0, 1)
	if c.EditorMargin < 0 {
		c.EditorMargin = d.EditorMargin
	}
	return c
}
