/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangatrans/internal/storage"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "meta.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPullDownloadsSkipsAndRecords(t *testing.T) {
	var hits sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := hits.LoadOrStore(r.URL.Path, new(int32))
		atomic.AddInt32(n.(*int32), 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("img:" + r.URL.Path))
	}))
	defer srv.Close()

	store := openStore(t)
	c := New(t.TempDir(), store, WithToken("tok"), WithBaseURL(srv.URL))
	urls := []string{srv.URL + "/a.png?sig=1", "", "/b.webp", srv.URL + "/c"}
	ctx := context.Background()

	res, err := c.Pull(ctx, "p1", "Project One", urls)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Downloaded)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, storage.CacheCompleted, res.Metadata.Status)
	assert.EqualValues(t, 3, res.Metadata.FileCount)

	data, err := os.ReadFile(c.Path("p1", 0, urls[0]))
	require.NoError(t, err)
	assert.Equal(t, "img:/a.png", string(data))
	assert.Equal(t, "0.png", filepath.Base(c.Path("p1", 0, urls[0])))
	assert.Equal(t, "2.webp", filepath.Base(c.Path("p1", 2, urls[2])))
	assert.Equal(t, "3.jpg", filepath.Base(c.Path("p1", 3, urls[3])))

	res, err = c.Pull(ctx, "p1", "Project One", urls)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Downloaded)
	assert.Equal(t, 3, res.Skipped)
	n, _ := hits.Load("/a.png")
	assert.EqualValues(t, 1, atomic.LoadInt32(n.(*int32)))

	md, err := c.Info(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Project One", md.ProjectName)
	assert.EqualValues(t, len("img:/a.png")+len("img:/b.webp")+len("img:/c"), md.TotalSizeBytes)

	path, ok := c.Resolve("p1", 2, urls[2])
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(path, "2.webp"))
	_, ok = c.Resolve("p1", 1, "https://x/y.png")
	assert.False(t, ok)
}

func TestPullRetriesThenMarksFailed(t *testing.T) {
	var flaky, broken int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.png":
			if atomic.AddInt32(&flaky, 1) < 3 {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		default:
			atomic.AddInt32(&broken, 1)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := openStore(t)
	c := New(t.TempDir(), store, WithRetryDelay(time.Millisecond))
	res, err := c.Pull(context.Background(), "p2", "Two", []string{srv.URL + "/flaky.png", srv.URL + "/gone.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
	assert.Equal(t, 1, res.Downloaded)
	assert.Equal(t, 1, res.Failed)
	assert.EqualValues(t, 3, atomic.LoadInt32(&flaky))
	assert.EqualValues(t, 1+MaxRetries, atomic.LoadInt32(&broken))

	md, err := store.CachedProject(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, storage.CacheFailed, md.Status)
	assert.EqualValues(t, 1, md.FileCount)

	entries, _ := os.ReadDir(c.ProjectDir("p2"))
	require.Len(t, entries, 1, "no partial files left")
}

func TestPullRespectsConcurrencyLimit(t *testing.T) {
	var cur, peak int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&cur, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&cur, -1)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = srv.URL + "/img.png"
	}
	c := New(t.TempDir(), nil)
	res, err := c.Pull(context.Background(), "p3", "", urls)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Downloaded)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(ConcurrentDownloads))
}

func TestDeleteAndList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("x")) }))
	defer srv.Close()
	store := openStore(t)
	c := New(t.TempDir(), store)
	ctx := context.Background()

	_, err := c.Pull(ctx, "a", "A", []string{srv.URL + "/1.png"})
	require.NoError(t, err)
	_, err = c.Pull(ctx, "b", "B", []string{srv.URL + "/1.png"})
	require.NoError(t, err)
	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.True(t, c.Exists("a"))

	require.NoError(t, c.Delete(ctx, "a"))
	assert.False(t, c.Exists("a"))
	_, err = c.Info(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	list, _ = c.List(ctx)
	assert.Len(t, list, 1)
	assert.Error(t, c.Delete(ctx, ""))
}

func TestRelativeURLWithoutBaseFails(t *testing.T) {
	c := New(t.TempDir(), nil, WithRetryDelay(time.Millisecond))
	res, err := c.Pull(context.Background(), "p", "", []string{"/rel.png"})
	require.Error(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, storage.CacheFailed, res.Metadata.Status)
}

func TestExtensionAndContentType(t *testing.T) {
	cases := map[string]string{
		"https://x/a.PNG":          "png",
		"https://x/a.jpeg?w=1":     "jpeg",
		"https://x/a.webp#frag":    "webp",
		"https://x/download?id=42": "jpg",
		"pages/001.bmp":            "bmp",
	}
	for in, want := range cases {
		assert.Equal(t, want, Extension(in), in)
	}
	assert.Equal(t, "image/png", ContentType("png"))
	assert.Equal(t, "image/jpeg", ContentType(".jpeg"))
	assert.Equal(t, "image/webp", ContentType("webp"))
}
