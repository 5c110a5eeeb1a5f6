/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package canvas is the annotation canvas of the translation workbench: a
// pan/zoom view over a page image on which translators place, drag and edit
// rectangular text markers. It is toolkit independent; a Host feeds it
// pointer events and renders the state it publishes on its Bus.
package canvas

import (
	"log/slog"

	"mangatrans/internal/domain"
	applog "mangatrans/internal/log"
	"mangatrans/internal/vector"
)

// Workbench composes the transform, gesture, marker and editor state of one
// page. It is not safe for concurrent use; hosts drive it from their UI
// goroutine. Operations that need geometry are no-ops until Mount.
type Workbench struct {
	cfg Config
	l   *slog.Logger
	bus *Bus

	t  *Transform
	g  *Gesture
	m  *Markers
	ed *Editor

	page    domain.Page
	host    Host
	layout  Layout
	mounted bool
	detach  []func()
}

func New(cfg Config) *Workbench {
	cfg = cfg.withDefaults()
	t := NewTransform(cfg.MinZoom, cfg.MaxZoom, cfg.ZoomStep)
	return &Workbench{
		cfg: cfg,
		l:   applog.WithComponent("canvas"),
		bus: NewBus(),
		t:   t,
		g:   NewGesture(t, cfg.PanningThreshold),
		m:   NewMarkers(cfg.MarkerSize, cfg.MarkerNudge),
		ed:  NewEditor(cfg.EditorGap, cfg.EditorMargin),
	}
}

func (w *Workbench) Bus() *Bus      { return w.bus }
func (w *Workbench) Config() Config { return w.cfg }

// Mount attaches the workbench to host and registers the window-level
// listeners that continue marker and editor drags. Mounting again first
// unmounts.
func (w *Workbench) Mount(h Host, l Layout) {
	if w.mounted {
		w.Unmount()
	}
	w.host = h
	w.layout = l
	w.mounted = true
	w.detach = []func(){
		h.AddGlobalListener(EventMove, w.globalMove),
		h.AddGlobalListener(EventUp, w.globalUp),
		h.AddGlobalListener(EventCancel, w.globalCancel),
	}
	w.l.Debug("mounted", slog.Any("layout", l))
	w.follow()
}

// Unmount removes the global listeners and abandons every open session.
func (w *Workbench) Unmount() {
	if !w.mounted {
		return
	}
	w.abortSessions()
	for _, fn := range w.detach {
		fn()
	}
	w.detach = nil
	w.host = nil
	w.mounted = false
	w.l.Debug("unmounted")
}

func (w *Workbench) Mounted() bool { return w.mounted }

// SetLayout updates the host geometry after a resize.
func (w *Workbench) SetLayout(l Layout) {
	w.layout = l
	w.follow()
}

func (w *Workbench) Layout() Layout { return w.layout }

// CanvasRect is the page image's bounding rectangle in surface coordinates.
func (w *Workbench) CanvasRect() (vector.Rect, bool) {
	if !w.mounted || !w.layout.valid() {
		return vector.Rect{}, false
	}
	return w.t.Matrix().ApplyRect(vector.R(0, 0, w.layout.Content.W, w.layout.Content.H)), true
}

// LoadPage replaces the page wholesale: markers, selection and view.
func (w *Workbench) LoadPage(p domain.Page) {
	w.abortSessions()
	w.page = p.Clone()
	w.page.Markers = nil
	w.t.Reset()
	w.m.Reset(p.Markers)
	w.l.Debug("page loaded", slog.String("page", p.String()))

	w.bus.Publish(PageLoaded{Page: w.Page()})
	w.publishTransform()
	w.publishMarkers()
	w.selectionChanged()
}

// Page returns the current page record including the live markers.
func (w *Workbench) Page() domain.Page {
	p := w.page
	p.Markers = w.m.List()
	return p
}

func (w *Workbench) Markers() []domain.Marker { return w.m.List() }

// Labels returns the derived labels parallel to Markers.
func (w *Workbench) Labels() []string { return Labels(w.m.items) }

func (w *Workbench) Selected() (domain.Marker, bool) { return w.m.Selected() }

func (w *Workbench) Zoom() float64       { return w.t.Zoom() }
func (w *Workbench) Pan() vector.Pt      { return w.t.Pan() }
func (w *Workbench) Editor() EditorState { return w.ed.State() }

// Panning reports whether a background press has turned into a pan.
func (w *Workbench) Panning() bool { return w.g.Panning() }

// MarkerBox returns a marker's rectangle in surface coordinates.
func (w *Workbench) MarkerBox(id string) (vector.Rect, bool) {
	rect, ok := w.CanvasRect()
	if !ok {
		return vector.Rect{}, false
	}
	return w.m.ScreenBox(id, rect)
}

// HitTest returns the top-most marker under the surface point p.
func (w *Workbench) HitTest(p vector.Pt) (string, bool) {
	rect, ok := w.CanvasRect()
	if !ok {
		return "", false
	}
	return w.m.HitTest(p, rect)
}

// PointerDown dispatches a press the way a DOM event bubbles: the marker
// under the pointer (markerID, may be empty) handles it first and stops
// propagation, so the canvas opens a gesture session only for presses on
// the background.
func (w *Workbench) PointerDown(ev *PointerEvent, markerID string) {
	if markerID != "" {
		w.markerDown(ev, markerID)
	}
	if ev.PropagationStopped() {
		return
	}
	w.canvasDown(ev)
}

func (w *Workbench) markerDown(ev *PointerEvent, id string) {
	if _, ok := w.m.Get(id); !ok {
		return
	}
	ev.StopPropagation()
	if ev.Button == ButtonSecondary {
		w.Remove(id)
		return
	}
	w.Select(id)
	if rect, ok := w.CanvasRect(); ok {
		w.m.BeginDrag(id, ev, rect)
	}
}

func (w *Workbench) canvasDown(ev *PointerEvent) {
	if !w.mounted || ev.Button != ButtonPrimary {
		return
	}
	if !w.g.Down(ev) {
		return
	}
	w.host.SetPointerCapture(ev.ID)
}

// PointerMove handles a move captured by the canvas surface.
func (w *Workbench) PointerMove(ev *PointerEvent) {
	if w.g.Move(ev) {
		w.publishTransform()
		w.follow()
	}
}

// PointerUp handles a release captured by the canvas surface. A session that
// never reached the panning threshold creates a marker at the release point.
func (w *Workbench) PointerUp(ev *PointerEvent) {
	outcome, at := w.g.Up(ev)
	if outcome == OutcomeNone {
		return
	}
	if w.host != nil {
		w.host.ReleasePointerCapture(ev.ID)
	}
	if outcome == OutcomePan {
		w.l.Debug("pan finished", slog.Any("pan", w.t.Pan()))
		return
	}
	rect, ok := w.CanvasRect()
	if !ok {
		return
	}
	mk, ok := w.m.CreateAt(at, rect)
	if !ok {
		w.l.Debug("tap outside page", slog.Any("at", at))
		return
	}
	w.l.Debug("marker created", slog.String("id", mk.ID), slog.Any("position", mk.Position))
	w.publishMarkers()
	w.selectionChanged()
}

// PointerCancel aborts the canvas session and restores the pan it started from.
func (w *Workbench) PointerCancel(ev *PointerEvent) {
	before := w.t.Pan()
	if !w.g.Cancel(ev) {
		return
	}
	if w.host != nil {
		w.host.ReleasePointerCapture(ev.ID)
	}
	if w.t.Pan() != before {
		w.publishTransform()
		w.follow()
	}
}

// Wheel zooms anchored at the wheel position; wheel up zooms in.
func (w *Workbench) Wheel(ev WheelEvent) {
	if !w.mounted || ev.DeltaY == 0 {
		return
	}
	if !w.t.ZoomAt(ev.Pos, -ev.DeltaY) {
		return
	}
	w.publishTransform()
	w.follow()
}

// ResetView restores zoom 1 and zero pan.
func (w *Workbench) ResetView() {
	if w.t.Zoom() == vector.Clamp(1, w.cfg.MinZoom, w.cfg.MaxZoom) && w.t.Pan() == (vector.Pt{}) {
		return
	}
	w.t.Reset()
	w.publishTransform()
	w.follow()
}

// EditorHeaderDown starts dragging the floating editor by its header.
func (w *Workbench) EditorHeaderDown(ev *PointerEvent) {
	ev.StopPropagation()
	if !w.mounted {
		return
	}
	w.ed.BeginDrag(ev)
}

func (w *Workbench) globalMove(ev *PointerEvent) {
	if _, ok := w.m.Dragging(); ok {
		if rect, ok := w.CanvasRect(); ok && w.m.UpdateDrag(ev, rect) {
			w.publishMarkers()
			w.follow()
		}
	}
	if w.ed.Dragging() && w.ed.DragTo(ev, w.layout.Viewport, w.layout.Panel) {
		w.publishEditor()
	}
}

func (w *Workbench) globalUp(ev *PointerEvent) {
	if w.m.EndDrag(ev) {
		w.l.Debug("drag finished")
	}
	w.ed.EndDrag(ev)
}

func (w *Workbench) globalCancel(ev *PointerEvent) {
	if w.m.CancelDrag(ev) {
		w.publishMarkers()
		w.follow()
	}
	if w.ed.CancelDrag(ev) {
		w.publishEditor()
	}
}

func (w *Workbench) abortSessions() {
	if id, ok := w.g.Active(); ok {
		w.g.Abort()
		if w.host != nil {
			w.host.ReleasePointerCapture(id)
		}
	}
	w.m.abortDrag()
	w.ed.drag = nil
}

// Select makes id the active marker.
func (w *Workbench) Select(id string) bool {
	if !w.m.Select(id) {
		return false
	}
	w.selectionChanged()
	return true
}

// Remove deletes a marker; selection falls back to the first remaining one.
func (w *Workbench) Remove(id string) bool {
	before := w.m.SelectedID()
	if !w.m.Remove(id) {
		return false
	}
	w.l.Debug("marker removed", slog.String("id", id))
	w.publishMarkers()
	if w.m.SelectedID() != before {
		w.selectionChanged()
	}
	return true
}

// SetTranslationText edits the selected marker's translation.
func (w *Workbench) SetTranslationText(text string) bool {
	return w.editSelected(func(mk *domain.Marker) bool { return SetTranslationText(mk, text) })
}

// SetProofText edits the selected marker's proof text.
func (w *Workbench) SetProofText(text string) bool {
	return w.editSelected(func(mk *domain.Marker) bool { return SetProofText(mk, text) })
}

// ToggleProof marks the selected marker proofed or reverts it.
func (w *Workbench) ToggleProof() bool {
	return w.editSelected(ToggleProof)
}

func (w *Workbench) editSelected(fn func(*domain.Marker) bool) bool {
	if !w.m.Update(w.m.SelectedID(), fn) {
		return false
	}
	w.publishMarkers()
	return true
}

// PrevPage asks the host for the previous page, if there is one.
func (w *Workbench) PrevPage() bool { return w.requestPage(w.page.PageIndex - 1) }

// NextPage asks the host for the next page, if there is one.
func (w *Workbench) NextPage() bool { return w.requestPage(w.page.PageIndex + 1) }

func (w *Workbench) requestPage(i int) bool {
	if i < 0 || i >= w.page.PageCount {
		return false
	}
	w.bus.Publish(PageIndexChanged{Index: i})
	return true
}

// Back asks the host to leave the workbench.
func (w *Workbench) Back() { w.bus.Publish(BackRequested{}) }

// windowBox converts a marker's surface box into window pixels.
func (w *Workbench) windowBox(id string) (vector.Rect, bool) {
	box, ok := w.MarkerBox(id)
	if !ok {
		return vector.Rect{}, false
	}
	box.X += w.layout.Origin.X
	box.Y += w.layout.Origin.Y
	return box, true
}

func (w *Workbench) selectionChanged() {
	id := w.m.SelectedID()
	w.bus.Publish(SelectionChanged{ID: id})
	var changed bool
	if id == "" {
		changed = w.ed.Hide()
	} else {
		// without geometry the panel keeps its anchor until the next follow
		box, ok := w.windowBox(id)
		vp := w.layout.Viewport
		if !ok {
			vp = vector.Size{}
		}
		changed = w.ed.SelectionChanged(box, vp, w.layout.Panel)
	}
	if changed {
		w.publishEditor()
	}
}

// follow keeps a docked editor next to its marker after view or marker changes.
func (w *Workbench) follow() {
	box, ok := w.windowBox(w.m.SelectedID())
	if !ok {
		return
	}
	if w.ed.Follow(box, w.layout.Viewport, w.layout.Panel) {
		w.publishEditor()
	}
}

func (w *Workbench) publishTransform() {
	w.bus.Publish(TransformChanged{Zoom: w.t.Zoom(), Pan: w.t.Pan()})
}

func (w *Workbench) publishMarkers() { w.bus.Publish(MarkersChanged{Markers: w.m.List()}) }
func (w *Workbench) publishEditor()  { w.bus.Publish(EditorChanged{State: w.ed.State()}) }
