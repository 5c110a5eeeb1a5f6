/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"math"

	"mangatrans/internal/vector"
)

// Transform is the view transform from the canvas's local frame to screen
// pixels: screen = zoom*local + pan. Pan is deliberately unbounded.
type Transform struct {
	zoom     float64
	pan      vector.Pt
	min, max float64
	step     float64
}

func NewTransform(minZoom, maxZoom, step float64) *Transform {
	t := &Transform{min: minZoom, max: maxZoom, step: step}
	t.Reset()
	return t
}

func (t *Transform) Zoom() float64  { return t.zoom }
func (t *Transform) Pan() vector.Pt { return t.pan }

// SetPan replaces the pan offset.
func (t *Transform) SetPan(p vector.Pt) { t.pan = p }

// Reset restores zoom 1 (clamped into the limits) and zero pan.
func (t *Transform) Reset() {
	t.zoom = vector.Clamp(1, t.min, t.max)
	t.pan = vector.Pt{}
}

// Matrix returns the current local→screen affine map.
func (t *Transform) Matrix() vector.Affine2D {
	return vector.Translate(t.pan.X, t.pan.Y).Mul(vector.Scale(t.zoom, t.zoom))
}

func (t *Transform) ToScreen(local vector.Pt) vector.Pt { return t.Matrix().Apply(local) }

func (t *Transform) ToLocal(screen vector.Pt) vector.Pt {
	return vector.Scaled(1/t.zoom, vector.Sub(screen, t.pan))
}

// ZoomAt changes zoom by one step in the sign of direction while keeping the
// local point under p on the same screen pixel. It reports false when the
// zoom is already at the bound in that direction or direction is zero.
func (t *Transform) ZoomAt(p vector.Pt, direction float64) bool {
	if direction == 0 || math.IsNaN(direction) {
		return false
	}
	dir := 1.0
	if direction < 0 {
		dir = -1
	}
	next := vector.Clamp(t.zoom+dir*t.step, t.min, t.max)
	if next == t.zoom {
		return false
	}
	local := t.ToLocal(p)
	t.pan = vector.Sub(p, vector.Scaled(next, local))
	t.zoom = next
	return true
}
