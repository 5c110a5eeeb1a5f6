/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangatrans/internal/domain"
	"mangatrans/internal/vector"
)

func dragEditor(wb *Workbench, host *LocalHost, from, to vector.Pt) {
	wb.EditorHeaderDown(&PointerEvent{ID: 9, Pos: from})
	host.Emit(EventMove, &PointerEvent{ID: 9, Pos: to})
	host.Emit(EventUp, &PointerEvent{ID: 9, Pos: to})
}

func TestEditorDocksRightOfSelectedMarker(t *testing.T) {
	wb, _, _ := newMounted(t, marker("a", domain.CategoryInside, 0.1, 0.1, 0.12, 0.08))
	st := wb.Editor()
	require.True(t, st.Visible)
	assert.False(t, st.ManuallyMoved)
	// surface box (80,60,96,48) plus origin (40,60), plus 12px gap
	assert.InDelta(t, (40+80+96+12)/1000.0*100, st.Anchor.X, 1e-9)
	assert.InDelta(t, (60+60)/800.0*100, st.Anchor.Y, 1e-9)
}

func TestEditorDockIsClampedToMargin(t *testing.T) {
	wb, _, _ := newMounted(t, marker("a", domain.CategoryInside, 0.88, 0.9, 0.12, 0.08))
	st := wb.Editor()
	// panel is 20% wide and 20% tall, margin 2%
	assert.InDelta(t, 78, st.Anchor.X, 1e-9)
	assert.InDelta(t, (60+540)/800.0*100, st.Anchor.Y, 1e-9)

	wb.LoadPage(domain.Page{PageCount: 1, Markers: []domain.Marker{marker("b", domain.CategoryInside, 0.9, 0.99, 0.1, 0.01)}})
	assert.InDelta(t, 78, wb.Editor().Anchor.Y, 1e-9)
}

func TestEditorFollowsMarkerOnPanAndDrag(t *testing.T) {
	wb, host, _ := newMounted(t, marker("a", domain.CategoryInside, 0.1, 0.1, 0.12, 0.08))
	before := wb.Editor().Anchor

	press(wb, host, "", vector.P(500, 500), vector.P(550, 500))
	after := wb.Editor().Anchor
	assert.InDelta(t, before.X+5, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	box, _ := wb.MarkerBox("a")
	press(wb, host, "a", vector.P(box.X+1, box.Y+1), vector.P(box.X+1, box.Y+81))
	assert.InDelta(t, after.Y+10, wb.Editor().Anchor.Y, 1e-9)
}

func TestManualDragSuppressesDockingUntilNextSelection(t *testing.T) {
	wb, host, _ := newMounted(t,
		marker("a", domain.CategoryInside, 0.1, 0.1, 0.12, 0.08),
		marker("b", domain.CategoryInside, 0.5, 0.5, 0.12, 0.08))

	dragEditor(wb, host, vector.P(0, 0), vector.P(1, 0))
	assert.False(t, wb.Editor().ManuallyMoved, "a one pixel nudge is not a manual move")

	start := wb.Editor().Anchor
	dragEditor(wb, host, vector.P(0, 0), vector.P(100, 80))
	st := wb.Editor()
	require.True(t, st.ManuallyMoved)
	assert.InDelta(t, start.X+10, st.Anchor.X, 1e-9)
	assert.InDelta(t, start.Y+10, st.Anchor.Y, 1e-9)

	// panning no longer moves the panel
	press(wb, host, "", vector.P(600, 500), vector.P(650, 500))
	assert.Equal(t, st.Anchor, wb.Editor().Anchor)

	// the first selection change keeps the moved anchor but clears the flag
	require.True(t, wb.Select("b"))
	assert.Equal(t, st.Anchor, wb.Editor().Anchor)
	assert.False(t, wb.Editor().ManuallyMoved)

	// and the kept anchor survives view changes until then
	press(wb, host, "", vector.P(600, 500), vector.P(610, 500))
	assert.Equal(t, st.Anchor, wb.Editor().Anchor)
	wb.Wheel(WheelEvent{Pos: vector.P(300, 300), DeltaY: -1})
	assert.Equal(t, st.Anchor, wb.Editor().Anchor)

	// the next one docks again
	require.True(t, wb.Select("a"))
	boxA, _ := wb.MarkerBox("a")
	assert.InDelta(t, (40+boxA.X+boxA.W+12)/1000*100, wb.Editor().Anchor.X, 1e-9)
}

func TestEditorDragCancelRestoresAnchor(t *testing.T) {
	wb, host, _ := newMounted(t, marker("a", domain.CategoryInside, 0.1, 0.1, 0.12, 0.08))
	start := wb.Editor()
	wb.EditorHeaderDown(&PointerEvent{ID: 9, Pos: vector.P(0, 0)})
	host.Emit(EventMove, &PointerEvent{ID: 9, Pos: vector.P(200, 200)})
	require.True(t, wb.Editor().ManuallyMoved)

	host.Emit(EventCancel, &PointerEvent{ID: 9, Pos: vector.P(200, 200)})
	assert.Equal(t, start, wb.Editor())
}

func TestEditorHiddenDragIsIgnored(t *testing.T) {
	wb, host, _ := newMounted(t)
	require.False(t, wb.Editor().Visible)
	dragEditor(wb, host, vector.P(0, 0), vector.P(300, 300))
	assert.Equal(t, EditorState{Anchor: DefaultAnchor}, wb.Editor())
}

func TestEditorStateStandalone(t *testing.T) {
	ed := NewEditor(10, 5)
	vp := vector.Size{W: 200, H: 100}
	panel := vector.Size{W: 20, H: 10}
	require.True(t, ed.SelectionChanged(vector.R(0, 0, 10, 10), vp, panel))
	assert.InDelta(t, 10.0, ed.State().Anchor.X, 1e-9)
	assert.InDelta(t, 5.0, ed.State().Anchor.Y, 1e-9)

	assert.False(t, ed.Follow(vector.R(0, 0, 10, 10), vp, panel))
	assert.True(t, ed.Follow(vector.R(20, 20, 10, 10), vp, panel))
	assert.InDelta(t, 20.0, ed.State().Anchor.X, 1e-9)

	assert.True(t, ed.Hide())
	assert.False(t, ed.Hide())
	assert.False(t, ed.Follow(vector.R(20, 20, 10, 10), vp, panel))
}
