// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package downloadcache adapts lib/caching's generic LRU cache into a
// bounded, on-disk cache of fetched formula sources keyed by URL, so
// that resolving the same source twice (e.g. two architectures of the
// same formula, or two formulas sharing a tarball) fetches it once.
package downloadcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/caching"
	"github.com/AcaciaLinux/tooling-go/lib/formula"
)

// entry is the value lib/caching's LRU keeps per URL. path is empty iff
// err is set.
type entry struct {
	path string
	err  error
}

// Cache is a formula.Downloader that sits in front of another
// formula.Downloader, serving repeated requests for the same URL from a
// capacity-bounded on-disk cache instead of re-fetching.
type Cache struct {
	dir   string
	cache caching.Cache[string, entry]
}

// New opens a download cache rooted at dir (created if absent), holding
// at most capacity distinct URLs' worth of fetched sources before
// evicting the least recently used. Misses are served by inner.
func New(dir string, capacity int, inner formula.Downloader) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "creating download cache directory").Contextf("path %q", dir)
	}
	return &Cache{
		dir:   dir,
		cache: caching.NewLRUCache[string, entry](capacity, &source{dir: dir, inner: inner}),
	}, nil
}

// Download implements formula.Downloader. The returned cleanup releases
// the cache's hold on the entry; unlike a plain fetch it does not delete
// the underlying file, which stays cached until evicted.
func (c *Cache) Download(ctx context.Context, url string) (string, func(), error) {
	e := c.cache.Acquire(ctx, url)
	if e.err != nil {
		err := e.err
		c.cache.Release(url)
		c.cache.Delete(url)
		return "", nil, err
	}

	path := e.path
	var once sync.Once
	cleanup := func() { once.Do(func() { c.cache.Release(url) }) }
	return path, cleanup, nil
}

// source implements caching.Source[string, entry], fetching from inner on
// a cache miss (or when the LRU reuses this entry's slot for a different
// URL) and persisting the result under dir keyed by a hash of the URL.
type source struct {
	dir   string
	inner formula.Downloader
}

func (s *source) Load(ctx context.Context, url string, e *entry) {
	if e.path != "" {
		os.Remove(e.path)
	}
	*e = entry{}

	path, cleanup, err := s.inner.Download(ctx, url)
	if err != nil {
		// Retry once: spec.md's propagation policy allows a single
		// transport-level retry before the failure is surfaced.
		path, cleanup, err = s.inner.Download(ctx, url)
	}
	if err != nil {
		e.err = aerrors.Wrap(err, aerrors.KindDownload, "fetching formula source").Contextf("url %q", url)
		return
	}
	defer cleanup()

	cachePath := filepath.Join(s.dir, hashURL(url))
	if err := copyFile(path, cachePath); err != nil {
		e.err = aerrors.Wrap(err, aerrors.KindIo, "caching downloaded source").Contextf("url %q", url)
		return
	}
	e.path = cachePath
}

// Flush implements caching.Source[string, entry]. Cached entries already
// live on disk as soon as Load returns, so there is nothing to flush.
func (s *source) Flush(context.Context, *entry) {}

func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

var _ formula.Downloader = (*Cache)(nil)
