/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func TestRectContainsAndUnion(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(P(10, 20)) || !r.Contains(P(110, 70)) {
		t.Fatalf("expected edge points to be contained")
	}
	if r.Contains(P(9.9, 20)) {
		t.Fatalf("point left of rect should not be contained")
	}
	u := r.Union(R(0, 0, 5, 5))
	if u.X != 0 || u.Y != 0 || u.W != 110 || u.H != 70 {
		t.Fatalf("unexpected union: %+v", u)
	}
}

func TestRectNormalizeRoundTrip(t *testing.T) {
	r := R(40, 30, 200, 100)
	f, ok := r.Normalize(P(140, 55))
	if !ok || !near(f.X, 0.5) || !near(f.Y, 0.25) {
		t.Fatalf("unexpected fraction: %+v ok=%v", f, ok)
	}
	back := r.Denormalize(f)
	if !near(back.X, 140) || !near(back.Y, 55) {
		t.Fatalf("round trip failed: %+v", back)
	}
	if _, ok := R(0, 0, 0, 10).Normalize(P(1, 1)); ok {
		t.Fatalf("degenerate rect must not normalize")
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(P(1, 1))
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestAffineInvert(t *testing.T) {
	m := Translate(-30, 12).Mul(Scale(1.12, 1.12))
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("expected invertible matrix")
	}
	q := inv.Apply(m.Apply(P(123.5, -7)))
	if !near(q.X, 123.5) || !near(q.Y, -7) {
		t.Fatalf("inverse did not round trip: %+v", q)
	}
	if _, ok := Scale(0, 1).Invert(); ok {
		t.Fatalf("singular matrix reported invertible")
	}
}

func TestApplyRect(t *testing.T) {
	r := Translate(5, 5).Mul(Scale(2, 2)).ApplyRect(R(1, 1, 10, 20))
	if r.X != 7 || r.Y != 7 || r.W != 20 || r.H != 40 {
		t.Fatalf("unexpected rect: %+v", r)
	}
}

func TestDistAndClamp(t *testing.T) {
	if d := Dist(P(0, 0), P(3, 4)); !near(d, 5) {
		t.Fatalf("expected 5, got %v", d)
	}
	if Clamp(1.5, 0, 1) != 1 || Clamp(-1, 0, 1) != 0 || Clamp(0.3, 0, 1) != 0.3 {
		t.Fatalf("clamp misbehaves")
	}
	if Clamp(0.5, 0, -0.2) != 0 {
		t.Fatalf("lower bound must win when bounds cross")
	}
	if FloatRound(1.23456, 2) != 1.23 {
		t.Fatalf("unexpected rounding")
	}
}
