/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "mangatrans/internal/vector"

// Outcome is what a finished gesture session resolved to.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeTap
	OutcomePan
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTap:
		return "tap"
	case OutcomePan:
		return "pan"
	}
	return "none"
}

type session struct {
	pointer    PointerID
	start      vector.Pt
	panAtStart vector.Pt
	panning    bool
}

// Gesture decides from one down→move→up stream whether a background press
// pans the view or is a tap. Only one session is open at a time.
type Gesture struct {
	t         *Transform
	threshold float64
	s         *session
}

func NewGesture(t *Transform, threshold float64) *Gesture {
	return &Gesture{t: t, threshold: threshold}
}

// Active reports whether a session is open, and for which pointer.
func (g *Gesture) Active() (PointerID, bool) {
	if g.s == nil {
		return 0, false
	}
	return g.s.pointer, true
}

// Panning reports whether the open session crossed the threshold.
func (g *Gesture) Panning() bool { return g.s != nil && g.s.panning }

// Down opens a session. It returns false while another session is open.
func (g *Gesture) Down(ev *PointerEvent) bool {
	if g.s != nil {
		return false
	}
	g.s = &session{pointer: ev.ID, start: ev.Pos, panAtStart: g.t.Pan()}
	return true
}

// Move updates the session and reports whether pan changed. Once the
// travel from the start reaches the threshold the session pans for good.
func (g *Gesture) Move(ev *PointerEvent) bool {
	s := g.s
	if s == nil || s.pointer != ev.ID {
		return false
	}
	if !s.panning && vector.Dist(ev.Pos, s.start) >= g.threshold {
		s.panning = true
	}
	if !s.panning {
		return false
	}
	next := vector.Add(s.panAtStart, vector.Sub(ev.Pos, s.start))
	if next == g.t.Pan() {
		return false
	}
	g.t.SetPan(next)
	return true
}

// Up closes the session. For a tap the release position is returned so the
// caller can place a marker there.
func (g *Gesture) Up(ev *PointerEvent) (Outcome, vector.Pt) {
	s := g.s
	if s == nil || s.pointer != ev.ID {
		return OutcomeNone, vector.Pt{}
	}
	g.s = nil
	if s.panning {
		return OutcomePan, ev.Pos
	}
	return OutcomeTap, ev.Pos
}

// Cancel discards the session and restores the pan it started with. It
// reports whether a session for ev's pointer was open.
func (g *Gesture) Cancel(ev *PointerEvent) bool {
	s := g.s
	if s == nil || s.pointer != ev.ID {
		return false
	}
	g.s = nil
	g.t.SetPan(s.panAtStart)
	return true
}

// Abort drops any open session without touching the transform.
func (g *Gesture) Abort() { g.s = nil }
