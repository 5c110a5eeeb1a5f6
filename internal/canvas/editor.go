/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "mangatrans/internal/vector"

// Anchor is the editor panel's top-left in percent of the viewport.
type Anchor struct{ X, Y float64 }

// DefaultAnchor is where the panel returns when nothing is selected.
var DefaultAnchor = Anchor{X: 70, Y: 10}

// EditorState is a snapshot of the floating editor.
type EditorState struct {
	Anchor        Anchor
	Visible       bool
	ManuallyMoved bool
}

type editorDrag struct {
	pointer      PointerID
	start        vector.Pt
	anchorAtDown Anchor
	movedAtDown  bool
	dockedAtDown bool
}

// Editor places the floating text panel next to the selected marker until
// the user drags it away.
type Editor struct {
	st     EditorState
	gap    float64
	margin float64
	drag   *editorDrag
	// docked is false while the panel sits at an anchor the user chose.
	docked bool
}

func NewEditor(gap, margin float64) *Editor {
	return &Editor{st: EditorState{Anchor: DefaultAnchor}, gap: gap, margin: margin}
}

func (e *Editor) State() EditorState { return e.st }

// dockAnchor computes the anchor just right of box's top-right corner. box
// is in window pixels.
func (e *Editor) dockAnchor(box vector.Rect, viewport, panel vector.Size) Anchor {
	if viewport.Empty() {
		return e.st.Anchor
	}
	a := Anchor{
		X: (box.X + box.W + e.gap) / viewport.W * 100,
		Y: box.Y / viewport.H * 100,
	}
	return e.clamp(a, viewport, panel)
}

func (e *Editor) clamp(a Anchor, viewport, panel vector.Size) Anchor {
	pw, ph := 0.0, 0.0
	if !viewport.Empty() {
		pw = panel.W / viewport.W * 100
		ph = panel.H / viewport.H * 100
	}
	a.X = vector.Clamp(a.X, e.margin, 100-e.margin-pw)
	a.Y = vector.Clamp(a.Y, e.margin, 100-e.margin-ph)
	return a
}

// SelectionChanged shows the panel for a new selection. Unless the user
// moved the panel during the previous selection it docks at box. A kept
// manual anchor stays put until the next selection. The manual flag is
// reset either way.
func (e *Editor) SelectionChanged(box vector.Rect, viewport, panel vector.Size) bool {
	prev := e.st
	if !e.st.ManuallyMoved || !e.st.Visible {
		e.st.Anchor = e.dockAnchor(box, viewport, panel)
		e.docked = true
	} else {
		e.docked = false
	}
	e.st.ManuallyMoved = false
	e.st.Visible = true
	e.drag = nil
	return e.st != prev
}

// Hide hides the panel and resets its anchor to DefaultAnchor.
func (e *Editor) Hide() bool {
	prev := e.st
	e.st = EditorState{Anchor: DefaultAnchor}
	e.drag = nil
	e.docked = false
	return e.st != prev
}

// Follow re-docks a visible, docked panel at box.
func (e *Editor) Follow(box vector.Rect, viewport, panel vector.Size) bool {
	if !e.st.Visible || !e.docked || e.st.ManuallyMoved || e.drag != nil {
		return false
	}
	next := e.dockAnchor(box, viewport, panel)
	if next == e.st.Anchor {
		return false
	}
	e.st.Anchor = next
	return true
}

// BeginDrag starts a header drag. ev.Pos may be in any frame as long as
// later moves use the same one.
func (e *Editor) BeginDrag(ev *PointerEvent) bool {
	if !e.st.Visible || e.drag != nil {
		return false
	}
	e.drag = &editorDrag{pointer: ev.ID, start: ev.Pos, anchorAtDown: e.st.Anchor, movedAtDown: e.st.ManuallyMoved, dockedAtDown: e.docked}
	return true
}

func (e *Editor) Dragging() bool { return e.drag != nil }

// DragTo applies every move. Travel beyond one pixel marks the panel as
// manually moved for the rest of the selection.
func (e *Editor) DragTo(ev *PointerEvent, viewport, panel vector.Size) bool {
	d := e.drag
	if d == nil || d.pointer != ev.ID || viewport.Empty() {
		return false
	}
	delta := vector.Sub(ev.Pos, d.start)
	if vector.Dist(ev.Pos, d.start) > 1 {
		e.st.ManuallyMoved = true
		e.docked = false
	}
	next := e.clamp(Anchor{
		X: d.anchorAtDown.X + delta.X/viewport.W*100,
		Y: d.anchorAtDown.Y + delta.Y/viewport.H*100,
	}, viewport, panel)
	if next == e.st.Anchor {
		return false
	}
	e.st.Anchor = next
	return true
}

func (e *Editor) EndDrag(ev *PointerEvent) bool {
	if e.drag == nil || e.drag.pointer != ev.ID {
		return false
	}
	e.drag = nil
	return true
}

// CancelDrag restores the anchor and flag the drag started with.
func (e *Editor) CancelDrag(ev *PointerEvent) bool {
	d := e.drag
	if d == nil || d.pointer != ev.ID {
		return false
	}
	e.drag = nil
	prev := e.st
	e.st.Anchor = d.anchorAtDown
	e.st.ManuallyMoved = d.movedAtDown
	e.docked = d.dockedAtDown
	return e.st != prev
}
