/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import "mangatrans/internal/vector"

// Host is the view that embeds a Workbench. It owns pointer capture and the
// window-level listeners used to continue drags outside the canvas surface.
type Host interface {
	// SetPointerCapture routes every later move/up/cancel for id to the
	// canvas surface until ReleasePointerCapture.
	SetPointerCapture(id PointerID)
	ReleasePointerCapture(id PointerID)
	// AddGlobalListener subscribes fn to window-level pointer events of kind
	// and returns the function that removes it.
	AddGlobalListener(kind EventKind, fn func(*PointerEvent)) (remove func())
}

// Layout is the host geometry the workbench needs for coordinate conversion.
type Layout struct {
	// Origin is the canvas surface's top-left in window pixels.
	Origin vector.Pt
	// Viewport is the window size in pixels; editor anchors are percentages of it.
	Viewport vector.Size
	// Content is the page image's laid-out size at zoom 1.
	Content vector.Size
	// Panel is the floating editor's size in pixels.
	Panel vector.Size
}

func (l Layout) valid() bool { return !l.Content.Empty() && !l.Viewport.Empty() }

// LocalHost is an in-process Host for toolkits that have no notion of
// pointer capture. The embedding widget routes events itself:
//
//	if h.Captured(ev.ID) { wb.PointerMove(ev) }
//	h.Emit(canvas.EventMove, ev)
type LocalHost struct {
	captured  map[PointerID]bool
	listeners map[EventKind][]listener
	next      int
}

type listener struct {
	id int
	fn func(*PointerEvent)
}

func NewLocalHost() *LocalHost {
	return &LocalHost{captured: map[PointerID]bool{}, listeners: map[EventKind][]listener{}}
}

func (h *LocalHost) SetPointerCapture(id PointerID)     { h.captured[id] = true }
func (h *LocalHost) ReleasePointerCapture(id PointerID) { delete(h.captured, id) }

// Captured reports whether id is currently captured by the canvas surface.
func (h *LocalHost) Captured(id PointerID) bool { return h.captured[id] }

func (h *LocalHost) AddGlobalListener(kind EventKind, fn func(*PointerEvent)) func() {
	id := h.next
	h.next++
	h.listeners[kind] = append(h.listeners[kind], listener{id: id, fn: fn})
	return func() {
		ls := h.listeners[kind]
		for i, l := range ls {
			if l.id == id {
				h.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers ev to the global listeners of kind in registration order.
func (h *LocalHost) Emit(kind EventKind, ev *PointerEvent) {
	ls := append([]listener(nil), h.listeners[kind]...)
	for _, l := range ls {
		l.fn(ev)
	}
}

// ListenerCount returns the number of registered global listeners.
func (h *LocalHost) ListenerCount() int {
	n := 0
	for _, ls := range h.listeners {
		n += len(ls)
	}
	return n
}
