/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagecache downloads a project's page images into a local cache
// directory so the workbench can open remote projects offline. Every pull
// records a metadata row (completed or failed, file count, size) in the store.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	applog "mangatrans/internal/log"
	"mangatrans/internal/storage"
)

const (
	// MaxRetries is the number of extra attempts after a failed download.
	MaxRetries = 2
	// ConcurrentDownloads bounds parallel requests per pull.
	ConcurrentDownloads = 5
)

// MetadataStore records pull results; storage.Store implements it.
type MetadataStore interface {
	UpsertCachedProject(ctx context.Context, c storage.CachedProject) error
	CachedProject(ctx context.Context, projectID string) (storage.CachedProject, error)
	CachedProjects(ctx context.Context) ([]storage.CachedProject, error)
	DeleteCachedProject(ctx context.Context, projectID string) error
}

// Cache is a directory of per-project image folders: <dir>/<project>/<index>.<ext>.
type Cache struct {
	dir         string
	meta        MetadataStore
	client      *http.Client
	baseURL     string
	token       string
	retryDelay  time.Duration
	concurrency int
	l           *slog.Logger
}

type Option func(*Cache)

func WithHTTPClient(c *http.Client) Option { return func(x *Cache) { x.client = c } }

// WithBaseURL resolves relative image URLs against base.
func WithBaseURL(base string) Option {
	return func(x *Cache) { x.baseURL = strings.TrimRight(base, "/") }
}

// WithToken sends a bearer token with every request.
func WithToken(tok string) Option { return func(x *Cache) { x.token = tok } }

func WithRetryDelay(d time.Duration) Option { return func(x *Cache) { x.retryDelay = d } }

func WithConcurrency(n int) Option {
	return func(x *Cache) {
		if n > 0 {
			x.concurrency = n
		}
	}
}

// New returns a cache rooted at dir. meta may be nil, in which case pulls
// are not recorded.
func New(dir string, meta MetadataStore, opts ...Option) *Cache {
	c := &Cache{
		dir:         dir,
		meta:        meta,
		client:      &http.Client{Timeout: 60 * time.Second},
		retryDelay:  500 * time.Millisecond,
		concurrency: ConcurrentDownloads,
		l:           applog.WithComponent("imagecache"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProjectDir is the folder holding a project's images.
func (c *Cache) ProjectDir(projectID string) string {
	return filepath.Join(c.dir, safeName(projectID))
}

// Exists reports whether anything was cached for the project.
func (c *Cache) Exists(projectID string) bool {
	st, err := os.Stat(c.ProjectDir(projectID))
	return err == nil && st.IsDir()
}

// Path is where page index of the project is cached.
func (c *Cache) Path(projectID string, index int, imageURL string) string {
	return filepath.Join(c.ProjectDir(projectID), strconv.Itoa(index)+"."+Extension(imageURL))
}

// Resolve returns the cached file for a page image when it exists.
func (c *Cache) Resolve(projectID string, index int, imageURL string) (string, bool) {
	p := c.Path(projectID, index, imageURL)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Result summarizes one Pull.
type Result struct {
	Downloaded int
	Skipped    int
	Failed     int
	Metadata   storage.CachedProject
}

// Pull downloads every non-empty URL in urls to its index slot, skipping
// files already present. Failed downloads do not stop the others; their
// errors are joined into the returned error and the metadata row is marked
// failed.
func (c *Cache) Pull(ctx context.Context, projectID, name string, urls []string) (Result, error) {
	l := applog.WithOperation(c.l, "pull").With(slog.String("project", projectID))
	var res Result
	if strings.TrimSpace(projectID) == "" {
		return res, errors.New("project id is required")
	}
	dir := c.ProjectDir(projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create cache dir: %w", err)
	}

	type job struct {
		index int
		url   string
	}
	var jobs []job
	for i, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := c.Resolve(projectID, i, u); ok {
			res.Skipped++
			continue
		}
		jobs = append(jobs, job{i, u})
	}
	l.Info("files checked", slog.Int("total", len(urls)), slog.Int("to_download", len(jobs)))

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(c.concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			err := c.downloadWithRetry(ctx, j.url, c.Path(projectID, j.index, j.url), l.With(slog.Int("index", j.index)))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("page %d: %w", j.index, err))
				res.Failed++
			} else {
				res.Downloaded++
			}
			return nil
		})
	}
	// jobs record their own errors, so Wait always returns nil
	_ = g.Wait()

	md := storage.CachedProject{ProjectID: projectID, ProjectName: name, Status: storage.CacheCompleted, CachedAt: time.Now()}
	for i, u := range urls {
		if u == "" {
			continue
		}
		if st, err := os.Stat(c.Path(projectID, i, u)); err == nil {
			md.FileCount++
			md.TotalSizeBytes += st.Size()
		}
	}
	if len(errs) > 0 {
		md.Status = storage.CacheFailed
	}
	res.Metadata = md
	if c.meta != nil {
		if err := c.meta.UpsertCachedProject(ctx, md); err != nil {
			errs = append(errs, fmt.Errorf("record metadata: %w", err))
		}
	}
	l.Info("pull finished", slog.String("status", md.Status), slog.Int64("files", md.FileCount), slog.Int64("bytes", md.TotalSizeBytes))
	return res, errors.Join(errs...)
}

func (c *Cache) downloadWithRetry(ctx context.Context, rawURL, dst string, l *slog.Logger) error {
	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if err = c.download(ctx, rawURL, dst); err == nil {
			return nil
		}
		if attempt == MaxRetries || ctx.Err() != nil {
			break
		}
		l.Warn("download failed, retrying", slog.Int("attempt", attempt+1), slog.Any("err", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	l.Error("download failed after all retries", slog.Any("err", err))
	return err
}

func (c *Cache) download(ctx context.Context, rawURL, dst string) error {
	u, err := c.resolveURL(rawURL)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: %s", req.URL.Path, resp.Status)
	}
	// write next to the target so a partial body never looks cached
	tmp := fmt.Sprintf("%s.part-%d", dst, rand.Int())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("read body: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (c *Cache) resolveURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return raw, nil
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("relative image url %q without base url", raw)
	}
	return c.baseURL + "/" + strings.TrimLeft(raw, "/"), nil
}

// Delete removes a project's cached files and its metadata row.
func (c *Cache) Delete(ctx context.Context, projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return errors.New("project id is required")
	}
	if err := os.RemoveAll(c.ProjectDir(projectID)); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	if c.meta != nil {
		return c.meta.DeleteCachedProject(ctx, projectID)
	}
	return nil
}

// List returns the recorded pulls, newest first.
func (c *Cache) List(ctx context.Context) ([]storage.CachedProject, error) {
	if c.meta == nil {
		return nil, nil
	}
	return c.meta.CachedProjects(ctx)
}

// Info returns the recorded pull of one project.
func (c *Cache) Info(ctx context.Context, projectID string) (storage.CachedProject, error) {
	if c.meta == nil {
		return storage.CachedProject{}, storage.ErrNotFound
	}
	return c.meta.CachedProject(ctx, projectID)
}

// Extension guesses the file extension from an image URL, ignoring the
// query string. Unknown types fall back to jpg.
func Extension(imageURL string) string {
	p := imageURL
	if u, err := url.Parse(imageURL); err == nil && u.Path != "" {
		p = u.Path
	}
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(p), ".")); ext {
	case "png", "jpg", "jpeg", "webp", "bmp":
		return ext
	}
	return "jpg"
}

// ContentType maps a cached file extension to its MIME type.
func ContentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	}
	return "image/jpeg"
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
