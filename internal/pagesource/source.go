/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagesource turns a project directory into the page records the
// workbench consumes. A project is a folder with a project.json manifest;
// page images are listed in the manifest or discovered under pages/.
package pagesource

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xeipuuv/gojsonschema"

	"mangatrans/internal/domain"
	applog "mangatrans/internal/log"

	// decoders for ImageSize and LoadImage
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ManifestFileName is the manifest inside a project directory.
const ManifestFileName = "project.json"

// DiscoverPattern finds page images when the manifest lists none.
const DiscoverPattern = "pages/**/*.{png,jpg,jpeg,webp,bmp,PNG,JPG,JPEG,WEBP,BMP}"

//go:embed project.schema.json
var manifestSchema []byte

var (
	ErrPageOutOfRange  = errors.New("page index out of range")
	ErrInvalidManifest = errors.New("invalid project manifest")
	ErrImageNotCached  = errors.New("remote image not cached")
)

// PageEntry is one page in the manifest. Image is a path relative to the
// project directory or an http(s) URL.
type PageEntry struct {
	Image   string          `json:"image"`
	Title   string          `json:"title,omitempty"`
	Markers []domain.Marker `json:"markers,omitempty"`
}

type Manifest struct {
	ID    string      `json:"id"`
	Title string      `json:"title,omitempty"`
	Pages []PageEntry `json:"pages,omitempty"`
}

// MarkerStore persists edited marker lists; storage.Store implements it.
type MarkerStore interface {
	LoadPageMarkers(ctx context.Context, projectID string, pageIndex int) ([]domain.Marker, bool, error)
	SavePageMarkers(ctx context.Context, projectID string, pageIndex int, markers []domain.Marker) error
}

// Resolver maps a remote image to a local file; imagecache.Cache implements it.
type Resolver interface {
	Resolve(projectID string, index int, url string) (string, bool)
}

// Project is an opened project directory.
type Project struct {
	Dir      string
	Manifest Manifest

	pages      []PageEntry
	discovered bool
	store      MarkerStore
	images     Resolver
	l          *slog.Logger
}

type Option func(*Project)

// WithStore makes stored markers override the manifest's and routes Save to the store.
func WithStore(s MarkerStore) Option { return func(p *Project) { p.store = s } }

// WithResolver resolves remote page images through a local cache.
func WithResolver(r Resolver) Option { return func(p *Project) { p.images = r } }

// Open reads and validates dir/project.json and resolves the page list.
func Open(dir string, opts ...Option) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(abs, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	p := &Project{Dir: abs, Manifest: m, l: applog.WithComponent("pagesource")}
	for _, o := range opts {
		o(p)
	}
	p.pages = m.Pages
	if len(p.pages) == 0 {
		p.pages, err = discover(abs)
		if err != nil {
			return nil, err
		}
		p.discovered = true
	}
	p.l.Debug("project opened", slog.String("id", m.ID), slog.Int("pages", len(p.pages)), slog.Bool("discovered", p.discovered))
	return p, nil
}

// ParseManifest validates data against the manifest schema and decodes it.
func ParseManifest(data []byte) (Manifest, error) {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(manifestSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Manifest{}, fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return m, nil
}

// Init writes a new manifest into dir. It refuses to overwrite an existing one.
func Init(dir string, m Manifest) error {
	if strings.TrimSpace(m.ID) == "" {
		m.ID = filepath.Base(dir)
	}
	path := filepath.Join(dir, ManifestFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Join(dir, "pages"), 0o755); err != nil {
		return err
	}
	return writeManifest(path, m)
}

func discover(dir string) ([]PageEntry, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), DiscoverPattern)
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}
	sortNatural(matches)
	out := make([]PageEntry, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		out = append(out, PageEntry{Image: m, Title: strings.TrimSuffix(base, filepath.Ext(base))})
	}
	return out, nil
}

func (p *Project) ID() string {
	if p.Manifest.ID != "" {
		return p.Manifest.ID
	}
	return filepath.Base(p.Dir)
}

func (p *Project) Title() string {
	if p.Manifest.Title != "" {
		return p.Manifest.Title
	}
	return p.ID()
}

func (p *Project) PageCount() int { return len(p.pages) }

// Entry returns the manifest entry of page i.
func (p *Project) Entry(i int) (PageEntry, error) {
	if i < 0 || i >= len(p.pages) {
		return PageEntry{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(p.pages))
	}
	return p.pages[i], nil
}

// Page builds the full page record for index i. Stored markers win over the
// manifest's.
func (p *Project) Page(ctx context.Context, i int) (domain.Page, error) {
	e, err := p.Entry(i)
	if err != nil {
		return domain.Page{}, err
	}
	markers := e.Markers
	if p.store != nil {
		stored, found, err := p.store.LoadPageMarkers(ctx, p.ID(), i)
		if err != nil {
			return domain.Page{}, fmt.Errorf("load markers: %w", err)
		}
		if found {
			markers = stored
		}
	}
	page := domain.Page{
		ImageReference: e.Image,
		PageIndex:      i,
		PageCount:      len(p.pages),
		Title:          e.Title,
		Markers:        make([]domain.Marker, 0, len(markers)),
	}
	for _, m := range markers {
		page.Markers = append(page.Markers, m.Normalize())
	}
	return page, nil
}

// Pages returns every page record in order.
func (p *Project) Pages(ctx context.Context) ([]domain.Page, error) {
	out := make([]domain.Page, 0, len(p.pages))
	for i := range p.pages {
		pg, err := p.Page(ctx, i)
		if err != nil {
			return nil, err
		}
		out = append(out, pg)
	}
	return out, nil
}

// Save persists the page's markers: to the store when one is configured,
// otherwise into project.json.
func (p *Project) Save(ctx context.Context, page domain.Page) error {
	if _, err := p.Entry(page.PageIndex); err != nil {
		return err
	}
	markers := make([]domain.Marker, 0, len(page.Markers))
	for _, m := range page.Markers {
		markers = append(markers, m.Normalize())
	}
	if p.store != nil {
		return p.store.SavePageMarkers(ctx, p.ID(), page.PageIndex, markers)
	}
	p.pages[page.PageIndex].Markers = markers
	m := p.Manifest
	m.Pages = p.pages
	if err := writeManifest(filepath.Join(p.Dir, ManifestFileName), m); err != nil {
		return err
	}
	p.Manifest = m
	p.discovered = false
	return nil
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	r := strings.ToLower(ref)
	return strings.HasPrefix(r, "http://") || strings.HasPrefix(r, "https://")
}

// RemoteImages returns the URLs of all remote page images, in page order.
// Local pages yield an empty string so indexes stay aligned.
func (p *Project) RemoteImages() []string {
	out := make([]string, len(p.pages))
	for i, e := range p.pages {
		if IsRemote(e.Image) {
			out[i] = e.Image
		}
	}
	return out
}

// ImagePath returns a local file for page i.
func (p *Project) ImagePath(i int) (string, error) {
	e, err := p.Entry(i)
	if err != nil {
		return "", err
	}
	if !IsRemote(e.Image) {
		if filepath.IsAbs(e.Image) {
			return e.Image, nil
		}
		return filepath.Join(p.Dir, filepath.FromSlash(e.Image)), nil
	}
	if p.images != nil {
		if path, ok := p.images.Resolve(p.ID(), i, e.Image); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrImageNotCached, e.Image)
}

// ImageSize returns the intrinsic pixel size of page i without decoding pixels.
func (p *Project) ImageSize(i int) (int, int, error) {
	path, err := p.ImagePath(i)
	if err != nil {
		return 0, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}

// LoadImage decodes the image of page i.
func (p *Project) LoadImage(i int) (image.Image, error) {
	path, err := p.ImagePath(i)
	if err != nil {
		return nil, err
	}
	return DecodeFile(path)
}

// DecodeFile decodes any registered image format.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
