/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mangatrans/internal/canvas"
	"mangatrans/internal/config"
	"mangatrans/internal/crash"
	"mangatrans/internal/domain"
	applog "mangatrans/internal/log"
	"mangatrans/internal/pagesource"
	"mangatrans/internal/vector"
)

// CanvasConfig maps the user's workbench settings onto the canvas tunables.
func CanvasConfig(c config.WorkbenchConfig) canvas.Config {
	d := canvas.DefaultConfig()
	d.MinZoom = c.MinZoom
	d.MaxZoom = c.MaxZoom
	d.ZoomStep = c.ZoomStep
	d.PanningThreshold = c.PanningThreshold
	d.MarkerSize = vector.Size{W: c.MarkerWidth, H: c.MarkerHeight}
	d.EditorGap = c.EditorGap
	d.EditorMargin = c.EditorMargin
	return d
}

// FitContent scales an image of size img to fit inside surface, keeping its
// aspect ratio. An unknown image size fills the surface.
func FitContent(img, surface vector.Size) vector.Size {
	if surface.Empty() {
		return vector.Size{}
	}
	if img.Empty() {
		return surface
	}
	s := min(surface.W/img.W, surface.H/img.H)
	return vector.Size{W: img.W * s, H: img.H * s}
}

// Session binds an opened project to a workbench. It loads pages when the
// workbench asks for navigation and saves the marker list before leaving a
// page or closing.
type Session struct {
	ctx  context.Context
	proj *pagesource.Project
	wb   *canvas.Workbench

	origin   vector.Pt
	surface  vector.Size
	viewport vector.Size
	panel    vector.Size
	imgSize  vector.Size

	loaded bool
	dirty  bool
	unsub  func()

	// OnBack runs after BackRequested once the page was saved.
	OnBack func()
	// OnError receives failures of event-driven loads and saves.
	OnError func(error)

	l *slog.Logger
}

// NewSession creates the workbench for proj and subscribes to its events.
func NewSession(ctx context.Context, proj *pagesource.Project, cfg canvas.Config) *Session {
	s := &Session{
		ctx:   ctx,
		proj:  proj,
		wb:    canvas.New(cfg),
		panel: vector.Size{W: 320, H: 220},
		l:     applog.WithComponent("ui").With(slog.String("project", proj.ID())),
	}
	s.unsub = s.wb.Bus().Subscribe(s.handle)
	return s
}

func (s *Session) Workbench() *canvas.Workbench { return s.wb }
func (s *Session) Project() *pagesource.Project { return s.proj }

// Dirty reports unsaved marker edits on the current page.
func (s *Session) Dirty() bool { return s.dirty }

// ImageSize is the intrinsic size of the loaded page image, zero if unknown.
func (s *Session) ImageSize() vector.Size { return s.imgSize }

func (s *Session) handle(ev canvas.Event) {
	switch e := ev.(type) {
	case canvas.MarkersChanged:
		if s.loaded {
			s.dirty = true
		}
	case canvas.PageIndexChanged:
		if err := s.Open(e.Index); err != nil {
			s.fail(err)
		}
	case canvas.BackRequested:
		if err := s.Save(); err != nil {
			s.fail(err)
			return
		}
		if s.OnBack != nil {
			s.OnBack()
		}
	}
}

func (s *Session) fail(err error) {
	s.l.Error("session", slog.Any("err", err))
	if s.OnError != nil {
		s.OnError(err)
	}
}

// Open saves pending edits and loads page i into the workbench.
func (s *Session) Open(i int) error {
	if err := s.Save(); err != nil {
		return err
	}
	page, err := s.proj.Page(s.ctx, i)
	if err != nil {
		return fmt.Errorf("open page %d: %w", i+1, err)
	}
	s.imgSize = vector.Size{}
	if w, h, err := s.proj.ImageSize(i); err != nil {
		s.l.Warn("image size unknown", slog.Int("page", i), slog.Any("err", err))
	} else {
		s.imgSize = vector.Size{W: float64(w), H: float64(h)}
	}
	s.loaded = false
	s.applyLayout()
	s.wb.LoadPage(page)
	s.loaded = true
	s.dirty = false
	s.l.Info("page opened", slog.String("page", page.String()))
	return nil
}

// Save persists the current page's markers if they changed.
func (s *Session) Save() error {
	if !s.loaded || !s.dirty {
		return nil
	}
	page := s.wb.Page()
	if err := s.proj.Save(s.ctx, page); err != nil {
		return fmt.Errorf("save page %d: %w", page.PageIndex+1, err)
	}
	s.dirty = false
	s.l.Debug("page saved", slog.Int("page", page.PageIndex), slog.Int("markers", len(page.Markers)))
	return nil
}

// Close saves and detaches the session from its workbench.
func (s *Session) Close() error {
	err := s.Save()
	s.wb.Unmount()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	return err
}

// Mount attaches the workbench to host with the geometry set so far.
func (s *Session) Mount(h canvas.Host) {
	s.wb.Mount(h, s.layout())
}

// SetGeometry records where the canvas surface sits in the window and how
// big the window and the editor panel are.
func (s *Session) SetGeometry(origin vector.Pt, surface, viewport, panel vector.Size) {
	s.origin, s.surface, s.viewport = origin, surface, viewport
	if !panel.Empty() {
		s.panel = panel
	}
	s.applyLayout()
}

func (s *Session) layout() canvas.Layout {
	return canvas.Layout{
		Origin:   s.origin,
		Viewport: s.viewport,
		Content:  FitContent(s.imgSize, s.surface),
		Panel:    s.panel,
	}
}

func (s *Session) applyLayout() {
	if s.wb.Mounted() {
		s.wb.SetLayout(s.layout())
	}
}

// CrashSession describes the open page for crash.Recover.
func (s *Session) CrashSession(dir string) *crash.Session {
	return &crash.Session{
		Dir:       dir,
		ProjectID: s.proj.ID(),
		Page: func() (domain.Page, bool) {
			if !s.loaded {
				return domain.Page{}, false
			}
			return s.wb.Page(), true
		},
	}
}

// ErrNoPages is returned by Start for a project without pages.
var ErrNoPages = errors.New("project has no pages")

// Start opens the first page, or the page given by index when in range.
func (s *Session) Start(index int) error {
	n := s.proj.PageCount()
	if n == 0 {
		return ErrNoPages
	}
	if index < 0 || index >= n {
		index = 0
	}
	return s.Open(index)
}
