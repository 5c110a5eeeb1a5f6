/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"fmt"
	"strconv"
	"strings"

	"mangatrans/internal/domain"
	"mangatrans/internal/vector"
)

type markerDrag struct {
	id      string
	pointer PointerID
	offset  vector.Pt
	start   domain.Position
}

// Markers owns a page's marker list, the selection and the single marker
// drag session. Positions are fractions of the page image; screen geometry
// comes in as the canvas bounding rect.
type Markers struct {
	items    []domain.Marker
	selected string
	seq      int
	size     vector.Size
	nudge    vector.Pt
	drag     *markerDrag
}

func NewMarkers(size vector.Size, nudge vector.Pt) *Markers {
	return &Markers{size: size, nudge: nudge}
}

// Reset replaces the list wholesale, clamps every position and selects the
// first marker or none.
func (m *Markers) Reset(ms []domain.Marker) {
	m.items = make([]domain.Marker, 0, len(ms))
	for _, mk := range ms {
		m.items = append(m.items, mk.Normalize())
	}
	m.drag = nil
	m.seq = 0
	m.selected = ""
	if len(m.items) > 0 {
		m.selected = m.items[0].ID
	}
}

// List returns a copy of the markers in display order.
func (m *Markers) List() []domain.Marker { return append([]domain.Marker(nil), m.items...) }

func (m *Markers) Len() int { return len(m.items) }

func (m *Markers) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Markers) Get(id string) (domain.Marker, bool) {
	i := m.index(id)
	if i < 0 {
		return domain.Marker{}, false
	}
	return m.items[i], true
}

// SelectedID returns the active marker id or "" when nothing is selected.
func (m *Markers) SelectedID() string { return m.selected }

func (m *Markers) Selected() (domain.Marker, bool) { return m.Get(m.selected) }

// Select makes id active. Selecting the active or an unknown id is a no-op.
func (m *Markers) Select(id string) bool {
	if id == m.selected || m.index(id) < 0 {
		return false
	}
	m.selected = id
	return true
}

// Update applies fn to the marker with id and re-clamps its position.
func (m *Markers) Update(id string, fn func(*domain.Marker) bool) bool {
	i := m.index(id)
	if i < 0 {
		return false
	}
	mk := m.items[i]
	if !fn(&mk) {
		return false
	}
	mk.ID = m.items[i].ID
	mk.Position = mk.Position.Clamp()
	m.items[i] = mk
	return true
}

func (m *Markers) nextID() string {
	for {
		m.seq++
		id := "m" + strconv.Itoa(m.seq)
		if m.index(id) < 0 {
			return id
		}
	}
}

// CreateAt adds a marker for a tap at screen point p. rect is the canvas
// bounding rect in the same coordinates. Points outside the rect are ignored.
func (m *Markers) CreateAt(p vector.Pt, rect vector.Rect) (domain.Marker, bool) {
	f, ok := rect.Normalize(p)
	if !ok || f.X < 0 || f.Y < 0 || f.X > 1 || f.Y > 1 {
		return domain.Marker{}, false
	}
	mk := domain.Marker{
		ID:       m.nextID(),
		Category: domain.CategoryInside,
		Status:   domain.StatusEmpty,
		Position: domain.Position{
			X:      f.X - m.nudge.X,
			Y:      f.Y - m.nudge.Y,
			Width:  m.size.W,
			Height: m.size.H,
		}.Clamp(),
	}
	m.items = append(m.items, mk)
	m.selected = mk.ID
	return mk, true
}

// Remove deletes id. When the active marker goes, selection falls back to
// the first remaining marker or none. An open drag of id is dropped.
func (m *Markers) Remove(id string) bool {
	i := m.index(id)
	if i < 0 {
		return false
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	if m.drag != nil && m.drag.id == id {
		m.drag = nil
	}
	if m.selected == id {
		m.selected = ""
		if len(m.items) > 0 {
			m.selected = m.items[0].ID
		}
	}
	return true
}

// ScreenBox returns the marker's rectangle in the coordinates of rect.
func (m *Markers) ScreenBox(id string, rect vector.Rect) (vector.Rect, bool) {
	mk, ok := m.Get(id)
	if !ok {
		return vector.Rect{}, false
	}
	return screenBox(mk.Position, rect), true
}

func screenBox(p domain.Position, rect vector.Rect) vector.Rect {
	return vector.R(rect.X+p.X*rect.W, rect.Y+p.Y*rect.H, p.Width*rect.W, p.Height*rect.H)
}

// HitTest returns the top-most marker under p.
func (m *Markers) HitTest(p vector.Pt, rect vector.Rect) (string, bool) {
	for i := len(m.items) - 1; i >= 0; i-- {
		if screenBox(m.items[i].Position, rect).Contains(p) {
			return m.items[i].ID, true
		}
	}
	return "", false
}

// BeginDrag opens the drag session for id, remembering the offset between
// the pointer and the marker's top-left on screen.
func (m *Markers) BeginDrag(id string, ev *PointerEvent, rect vector.Rect) bool {
	if m.drag != nil || rect.Empty() {
		return false
	}
	mk, ok := m.Get(id)
	if !ok {
		return false
	}
	box := screenBox(mk.Position, rect)
	m.drag = &markerDrag{id: id, pointer: ev.ID, offset: vector.Sub(ev.Pos, box.Min()), start: mk.Position}
	return true
}

// Dragging returns the id being dragged, if any.
func (m *Markers) Dragging() (string, bool) {
	if m.drag == nil {
		return "", false
	}
	return m.drag.id, true
}

// UpdateDrag moves the dragged marker so that its top-left follows the
// pointer minus the grab offset, clamped per axis into the image.
func (m *Markers) UpdateDrag(ev *PointerEvent, rect vector.Rect) bool {
	d := m.drag
	if d == nil || d.pointer != ev.ID {
		return false
	}
	f, ok := rect.Normalize(vector.Sub(ev.Pos, d.offset))
	if !ok {
		return false
	}
	return m.Update(d.id, func(mk *domain.Marker) bool {
		next := mk.Position
		next.X = vector.Clamp(f.X, 0, 1-next.Width)
		next.Y = vector.Clamp(f.Y, 0, 1-next.Height)
		if next == mk.Position {
			return false
		}
		mk.Position = next
		return true
	})
}

// EndDrag closes the session for ev's pointer. Positions were applied live.
func (m *Markers) EndDrag(ev *PointerEvent) bool {
	if m.drag == nil || m.drag.pointer != ev.ID {
		return false
	}
	m.drag = nil
	return true
}

// CancelDrag closes the session and puts the marker back where it started.
// It reports whether the position changed.
func (m *Markers) CancelDrag(ev *PointerEvent) bool {
	d := m.drag
	if d == nil || d.pointer != ev.ID {
		return false
	}
	m.drag = nil
	return m.Update(d.id, func(mk *domain.Marker) bool {
		if mk.Position == d.start {
			return false
		}
		mk.Position = d.start
		return true
	})
}

func (m *Markers) abortDrag() { m.drag = nil }

func (m *Markers) String() string {
	var b strings.Builder
	labels := Labels(m.items)
	for i, mk := range m.items {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s(%s,%s)", labels[i], mk.ID, mk.Status)
	}
	return b.String()
}
