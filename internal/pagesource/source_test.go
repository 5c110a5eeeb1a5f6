/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pagesource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"mangatrans/internal/domain"
)

type memStore struct {
	pages map[string][]domain.Marker
}

func newMemStore() *memStore { return &memStore{pages: map[string][]domain.Marker{}} }

func (s *memStore) key(project string, i int) string { return fmt.Sprintf("%s/%d", project, i) }

func (s *memStore) LoadPageMarkers(_ context.Context, project string, i int) ([]domain.Marker, bool, error) {
	ms, ok := s.pages[s.key(project, i)]
	return ms, ok, nil
}

func (s *memStore) SavePageMarkers(_ context.Context, project string, i int, ms []domain.Marker) error {
	s.pages[s.key(project, i)] = ms
	return nil
}

type mapResolver map[string]string

func (r mapResolver) Resolve(_ string, _ int, url string) (string, bool) {
	p, ok := r[url]
	return p, ok
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeManifestFile(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(body), 0o644))
}

const twoPageManifest = `{
  "id": "vol1",
  "title": "Volume 1",
  "pages": [
    {"image": "img/a.png", "title": "Cover", "markers": [
      {"id": "m1", "category": "outside", "status": "translated", "translationText": "hi",
       "position": {"x": 0.1, "y": 0.1, "width": 0.2, "height": 0.1}}
    ]},
    {"image": "https://cdn.example.com/p/2.jpg?sig=1"}
  ]
}`

func TestOpenManifestPagesAndStoreOverride(t *testing.T) {
	dir := t.TempDir()
	writeManifestFile(t, dir, twoPageManifest)
	writePNG(t, filepath.Join(dir, "img", "a.png"), 40, 30)

	store := newMemStore()
	p, err := Open(dir, WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, "vol1", p.ID())
	assert.Equal(t, "Volume 1", p.Title())
	require.Equal(t, 2, p.PageCount())

	ctx := context.Background()
	pg, err := p.Page(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Cover", pg.Title)
	assert.Equal(t, 2, pg.PageCount)
	require.Len(t, pg.Markers, 1)
	assert.Equal(t, "hi", pg.Markers[0].TranslationText)

	pg.Markers = append(pg.Markers, domain.Marker{ID: "m2", Position: domain.Position{X: 2, Y: 0.5, Width: 0.1, Height: 0.1}})
	require.NoError(t, p.Save(ctx, pg))
	again, err := p.Page(ctx, 0)
	require.NoError(t, err)
	require.Len(t, again.Markers, 2)
	assert.Equal(t, 0.9, again.Markers[1].Position.X)
	assert.Equal(t, domain.CategoryInside, again.Markers[1].Category)

	w, h, err := p.ImageSize(0)
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)

	_, err = p.Page(ctx, 2)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = p.Page(ctx, -1)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestRemoteImagesResolveThroughCache(t *testing.T) {
	dir := t.TempDir()
	writeManifestFile(t, dir, twoPageManifest)
	url := "https://cdn.example.com/p/2.jpg?sig=1"

	p, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"", url}, p.RemoteImages())
	_, err = p.ImagePath(1)
	assert.ErrorIs(t, err, ErrImageNotCached)

	cached := filepath.Join(t.TempDir(), "1.jpg")
	p, err = Open(dir, WithResolver(mapResolver{url: cached}))
	require.NoError(t, err)
	path, err := p.ImagePath(1)
	require.NoError(t, err)
	assert.Equal(t, cached, path)
}

func TestDiscoverPagesInNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifestFile(t, dir, `{"id": "scan"}`)
	writePNG(t, filepath.Join(dir, "pages", "p10.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "pages", "p2.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "pages", "sub", "p1.png"), 2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "notes.txt"), []byte("x"), 0o644))

	f, err := os.Create(filepath.Join(dir, "pages", "p3.bmp"))
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, image.NewRGBA(image.Rect(0, 0, 7, 5))))
	require.NoError(t, f.Close())

	p, err := Open(dir)
	require.NoError(t, err)
	var images []string
	for i := 0; i < p.PageCount(); i++ {
		e, err := p.Entry(i)
		require.NoError(t, err)
		images = append(images, e.Image)
	}
	assert.Equal(t, []string{"pages/p2.png", "pages/p3.bmp", "pages/p10.png", "pages/sub/p1.png"}, images)

	e, _ := p.Entry(0)
	assert.Equal(t, "p2", e.Title)
	w, h, err := p.ImageSize(1)
	require.NoError(t, err)
	assert.Equal(t, [2]int{7, 5}, [2]int{w, h})
}

func TestSaveWithoutStoreWritesManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifestFile(t, dir, `{"id": "scan"}`)
	writePNG(t, filepath.Join(dir, "pages", "001.png"), 2, 2)
	ctx := context.Background()

	p, err := Open(dir)
	require.NoError(t, err)
	pg, err := p.Page(ctx, 0)
	require.NoError(t, err)
	pg.Markers = []domain.Marker{{ID: "m1", Category: domain.CategoryOutside, Status: domain.StatusEmpty,
		Position: domain.Position{X: 0.3, Y: 0.3, Width: 0.1, Height: 0.1}}}
	require.NoError(t, p.Save(ctx, pg))

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.Page(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got.Markers, 1)
	assert.Equal(t, domain.CategoryOutside, got.Markers[0].Category)
	assert.Equal(t, "pages/001.png", got.ImageReference)
}

func TestInvalidManifests(t *testing.T) {
	cases := map[string]string{
		"missing id":    `{"title": "x"}`,
		"bad status":    `{"id": "a", "pages": [{"image": "a.png", "markers": [{"id": "m", "status": "done", "position": {"x":0,"y":0,"width":0.1,"height":0.1}}]}]}`,
		"missing image": `{"id": "a", "pages": [{"title": "t"}]}`,
		"wide marker":   `{"id": "a", "pages": [{"image": "a.png", "markers": [{"id": "m", "position": {"x":0,"y":0,"width":1.5,"height":0.1}}]}]}`,
		"not json":      `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "newproj")
	require.NoError(t, Init(dir, Manifest{Title: "New"}))
	p, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "newproj", p.ID())
	assert.Equal(t, 0, p.PageCount())
	assert.Error(t, Init(dir, Manifest{ID: "x"}))
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("p2", "p10"))
	assert.False(t, naturalLess("p10", "p2"))
	assert.True(t, naturalLess("P1", "p01"), "shorter zero padding first on ties")
	assert.True(t, naturalLess("a", "b"))
	assert.True(t, naturalLess("page", "page1"))
	assert.False(t, naturalLess("same", "same"))
}
