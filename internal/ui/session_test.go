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
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangatrans/internal/canvas"
	"mangatrans/internal/config"
	"mangatrans/internal/pagesource"
	"mangatrans/internal/storage"
	"mangatrans/internal/vector"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
}

func newProject(t *testing.T, opts ...pagesource.Option) *pagesource.Project {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, pagesource.Init(dir, pagesource.Manifest{ID: "demo", Title: "Demo"}))
	writePNG(t, filepath.Join(dir, "pages", "p1.png"), 400, 300)
	writePNG(t, filepath.Join(dir, "pages", "p2.png"), 300, 600)
	p, err := pagesource.Open(dir, opts...)
	require.NoError(t, err)
	return p
}

func startSession(t *testing.T, p *pagesource.Project) (*Session, *canvas.LocalHost) {
	t.Helper()
	s := NewSession(context.Background(), p, canvas.DefaultConfig())
	s.SetGeometry(vector.P(0, 0), vector.Size{W: 800, H: 600}, vector.Size{W: 1000, H: 800}, vector.Size{W: 200, H: 160})
	h := canvas.NewLocalHost()
	s.Mount(h)
	require.NoError(t, s.Start(0))
	return s, h
}

func tap(wb *canvas.Workbench, x, y float64) {
	wb.PointerDown(&canvas.PointerEvent{ID: 1, Pos: vector.P(x, y)}, "")
	wb.PointerUp(&canvas.PointerEvent{ID: 1, Pos: vector.P(x, y)})
}

func TestSessionSavesOnNavigation(t *testing.T) {
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "wb.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	s, _ := startSession(t, newProject(t, pagesource.WithStore(store)))
	wb := s.Workbench()
	assert.Equal(t, vector.Size{W: 400, H: 300}, s.ImageSize())
	assert.Equal(t, vector.Size{W: 800, H: 600}, wb.Layout().Content)
	assert.False(t, s.Dirty())

	tap(wb, 400, 300)
	require.Len(t, wb.Markers(), 1)
	assert.True(t, s.Dirty())

	require.True(t, wb.NextPage())
	assert.Equal(t, 1, wb.Page().PageIndex)
	assert.Empty(t, wb.Markers())
	assert.False(t, s.Dirty())
	assert.Equal(t, vector.Size{W: 300, H: 600}, wb.Layout().Content)

	stored, found, err := store.LoadPageMarkers(context.Background(), "demo", 0)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, stored, 1)

	assert.False(t, wb.NextPage(), "no page after the last")
	require.True(t, wb.PrevPage())
	assert.Equal(t, 0, wb.Page().PageIndex)
	require.Len(t, wb.Markers(), 1)
	assert.Equal(t, stored[0].ID, wb.Markers()[0].ID)
}

func TestSessionWithoutStoreWritesManifest(t *testing.T) {
	p := newProject(t)
	s, _ := startSession(t, p)
	tap(s.Workbench(), 200, 150)
	require.True(t, s.Workbench().SetTranslationText("Hello"))
	require.NoError(t, s.Close())

	again, err := pagesource.Open(p.Dir)
	require.NoError(t, err)
	pg, err := again.Page(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pg.Markers, 1)
	assert.Equal(t, "Hello", pg.Markers[0].TranslationText)
}

func TestSessionBackSavesThenCallsHook(t *testing.T) {
	s, _ := startSession(t, newProject(t))
	var backs int
	s.OnBack = func() {
		backs++
		assert.False(t, s.Dirty())
	}
	tap(s.Workbench(), 100, 100)
	s.Workbench().Back()
	assert.Equal(t, 1, backs)
}

func TestSessionCloseDetaches(t *testing.T) {
	s, h := startSession(t, newProject(t))
	assert.Equal(t, 3, h.ListenerCount())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, h.ListenerCount())
	assert.False(t, s.Workbench().Mounted())
	require.NoError(t, s.Close())
}

func TestSessionOpenOutOfRange(t *testing.T) {
	s, _ := startSession(t, newProject(t))
	err := s.Open(7)
	require.ErrorIs(t, err, pagesource.ErrPageOutOfRange)
	assert.Equal(t, 0, s.Workbench().Page().PageIndex)
}

func TestSessionCrashSession(t *testing.T) {
	p := newProject(t)
	s := NewSession(context.Background(), p, canvas.DefaultConfig())
	cs := s.CrashSession(t.TempDir())
	_, ok := cs.Page()
	assert.False(t, ok, "nothing loaded yet")

	require.NoError(t, s.Start(5))
	pg, ok := cs.Page()
	require.True(t, ok)
	assert.Equal(t, 0, pg.PageIndex)
	assert.Equal(t, "demo", cs.ProjectID)
}

func TestFitContent(t *testing.T) {
	assert.Equal(t, vector.Size{W: 800, H: 600}, FitContent(vector.Size{W: 400, H: 300}, vector.Size{W: 800, H: 800}))
	assert.Equal(t, vector.Size{W: 300, H: 600}, FitContent(vector.Size{W: 100, H: 200}, vector.Size{W: 800, H: 600}))
	assert.Equal(t, vector.Size{W: 50, H: 60}, FitContent(vector.Size{}, vector.Size{W: 50, H: 60}))
	assert.True(t, FitContent(vector.Size{W: 1, H: 1}, vector.Size{}).Empty())
}

func TestCanvasConfigFromSettings(t *testing.T) {
	wc := config.Defaults().Workbench
	wc.PanningThreshold = 9
	wc.MarkerWidth = 0.2
	c := CanvasConfig(wc)
	assert.Equal(t, 9.0, c.PanningThreshold)
	assert.Equal(t, vector.Size{W: 0.2, H: wc.MarkerHeight}, c.MarkerSize)
	assert.Equal(t, wc.MaxZoom, c.MaxZoom)
	assert.Equal(t, canvas.DefaultConfig().MarkerNudge, c.MarkerNudge)
}
