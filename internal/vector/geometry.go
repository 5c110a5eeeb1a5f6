/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry and affine transforms shared by the canvas engine, the UI
// and the exporters. Values are float64 pixels or normalized fractions,
// depending on the frame the caller works in.

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Pt is a 2D point or offset.
type Pt = r2.Vec

func P(x, y float64) Pt { return Pt{X: x, Y: y} }

func Add(a, b Pt) Pt           { return r2.Add(a, b) }
func Sub(a, b Pt) Pt           { return r2.Sub(a, b) }
func Scaled(f float64, p Pt) Pt { return r2.Scale(f, p) }

// Dist is the Euclidean distance between a and b.
func Dist(a, b Pt) float64 { return r2.Norm(r2.Sub(a, b)) }

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Empty reports whether either side is non-positive.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt     { return Pt{X: r.X, Y: r.Y} }
func (r Rect) Max() Pt     { return Pt{X: r.X + r.W, Y: r.Y + r.H} }
func (r Rect) Size() Size  { return Size{W: r.W, H: r.H} }
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains is inclusive on all four edges.
func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Normalize expresses p as a fraction of r: (p - r.min) / r.size.
// ok is false for a degenerate rect.
func (r Rect) Normalize(p Pt) (f Pt, ok bool) {
	if r.Empty() {
		return Pt{}, false
	}
	return Pt{X: (p.X - r.X) / r.W, Y: (p.Y - r.Y) / r.H}, true
}

// Denormalize is the inverse of Normalize.
func (r Rect) Denormalize(f Pt) Pt {
	return Pt{X: r.X + f.X*r.W, Y: r.Y + f.Y*r.H}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// ApplyRect maps an axis-aligned rect through a transform without rotation or shear.
func (m Affine2D) ApplyRect(r Rect) Rect {
	p0 := m.Apply(r.Min())
	p1 := m.Apply(r.Max())
	return Rect{X: p0.X, Y: p0.Y, W: p1.X - p0.X, H: p1.Y - p0.Y}
}

// Invert returns the inverse transform; ok is false when m is singular.
func (m Affine2D) Invert() (Affine2D, bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity, false
	}
	inv := 1 / det
	return Affine2D{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}, true
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }

// Clamp limits v to [lo, hi]. If hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
