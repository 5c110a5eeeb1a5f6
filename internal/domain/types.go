/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Core records exchanged between the page source, the canvas engine and the
// exporters. Positions are fractions of the page image's intrinsic size.

import "fmt"

// Category is a display/ordering attribute of a marker; each category is
// numbered independently.
type Category string

const (
	CategoryOutside Category = "outside"
	CategoryInside  Category = "inside"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return c == CategoryOutside || c == CategoryInside }

// Status tracks how far a marker's text has progressed.
type Status string

const (
	StatusEmpty      Status = "empty"
	StatusTranslated Status = "translated"
	StatusProofed    Status = "proofed"
)

func (s Status) Valid() bool {
	return s == StatusEmpty || s == StatusTranslated || s == StatusProofed
}

// Position is a rectangle in normalized image space.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Clamp returns p moved (never resized beyond [0,1]) so that
// 0 <= x <= 1-width and 0 <= y <= 1-height.
func (p Position) Clamp() Position {
	p.Width = clamp01(p.Width)
	p.Height = clamp01(p.Height)
	p.X = clamp(p.X, 0, 1-p.Width)
	p.Y = clamp(p.Y, 0, 1-p.Height)
	return p
}

// InBounds reports whether p satisfies the clamping invariant.
func (p Position) InBounds() bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= 1-p.Width && p.Y <= 1-p.Height
}

// Marker is a rectangular annotation over a page image, a "source" in the
// translators' vocabulary.
type Marker struct {
	ID              string   `json:"id"`
	Category        Category `json:"category"`
	Status          Status   `json:"status"`
	TranslationText string   `json:"translationText,omitempty"`
	ProofText       string   `json:"proofText,omitempty"`
	Position        Position `json:"position"`
}

// Normalize fills defaults for zero values and clamps the position.
func (m Marker) Normalize() Marker {
	if !m.Category.Valid() {
		m.Category = CategoryInside
	}
	if !m.Status.Valid() {
		m.Status = StatusEmpty
	}
	m.Position = m.Position.Clamp()
	return m
}

// Page is the record a host supplies on navigation.
type Page struct {
	ImageReference string   `json:"imageReference"`
	PageIndex      int      `json:"pageIndex"`
	PageCount      int      `json:"pageCount"`
	Title          string   `json:"title,omitempty"`
	Markers        []Marker `json:"markers"`
}

// Clone returns a copy whose marker slice does not alias p's.
func (p Page) Clone() Page {
	c := p
	c.Markers = append([]Marker(nil), p.Markers...)
	return c
}

func (p Page) String() string {
	return fmt.Sprintf("page %d/%d %q (%d markers)", p.PageIndex+1, p.PageCount, p.Title, len(p.Markers))
}

// StatusCounts tallies markers per status.
func StatusCounts(ms []Marker) map[Status]int {
	out := map[Status]int{StatusEmpty: 0, StatusTranslated: 0, StatusProofed: 0}
	for _, m := range ms {
		out[m.Status]++
	}
	return out
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
