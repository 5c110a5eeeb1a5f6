/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"mangatrans/internal/domain"
	"mangatrans/internal/vector"
)

// PointerID identifies one pointer (mouse, pen or touch contact) for the
// duration of a down→up interaction.
type PointerID int

// Button is the pointer button that started an interaction.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// PointerEvent is a pointer sample in canvas-surface coordinates (pixels,
// origin at the surface's top-left). Handlers share one *PointerEvent per
// dispatch so that StopPropagation is visible to handlers further up.
type PointerEvent struct {
	ID     PointerID
	Pos    vector.Pt
	Button Button

	stopped bool
}

// StopPropagation prevents handlers further up the dispatch chain from seeing ev.
func (ev *PointerEvent) StopPropagation() { ev.stopped = true }

func (ev *PointerEvent) PropagationStopped() bool { return ev.stopped }

// WheelEvent is a wheel sample in surface coordinates. Positive DeltaY
// scrolls down, which zooms out.
type WheelEvent struct {
	Pos    vector.Pt
	DeltaY float64
}

// EventKind names the global pointer streams a Host can subscribe to.
type EventKind int

const (
	EventMove EventKind = iota
	EventUp
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventUp:
		return "up"
	case EventCancel:
		return "cancel"
	}
	return "unknown"
}

// Event is published on the Bus after every state change.
type Event interface{ event() }

// MarkersChanged carries a copy of the marker list after a create, remove,
// drag or text edit.
type MarkersChanged struct{ Markers []domain.Marker }

// SelectionChanged carries the new active marker id; empty means none.
type SelectionChanged struct{ ID string }

type TransformChanged struct {
	Zoom float64
	Pan  vector.Pt
}

type EditorChanged struct{ State EditorState }

// PageIndexChanged asks the host to fetch and load another page.
type PageIndexChanged struct{ Index int }

// BackRequested asks the host to leave the workbench.
type BackRequested struct{}

// PageLoaded is published after LoadPage replaced the workbench state.
type PageLoaded struct{ Page domain.Page }

func (MarkersChanged) event()   {}
func (SelectionChanged) event() {}
func (TransformChanged) event() {}
func (EditorChanged) event()    {}
func (PageIndexChanged) event() {}
func (BackRequested) event()    {}
func (PageLoaded) event()       {}
