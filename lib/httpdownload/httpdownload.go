// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package httpdownload implements formula.Downloader by fetching a URL
// to a temporary file over plain net/http.
package httpdownload

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/formula"
)

// Downloader fetches source URLs to temp files under Dir using Client.
// The zero value is ready to use: it fetches to os.TempDir with
// http.DefaultClient.
type Downloader struct {
	// Dir is the directory temp files are created under. Empty means
	// os.TempDir.
	Dir string
	// Client is the HTTP client used to perform requests. Nil means
	// http.DefaultClient.
	Client *http.Client
}

// New returns a Downloader fetching to dir with the given timeout applied
// per request (zero means no extra timeout beyond ctx's own deadline).
func New(dir string, timeout time.Duration) *Downloader {
	client := http.DefaultClient
	if timeout > 0 {
		client = &http.Client{Timeout: timeout}
	}
	return &Downloader{Dir: dir, Client: client}
}

// Download implements formula.Downloader: it streams url's body to a
// fresh temp file and hands back its path. cleanup removes the file;
// callers (formula.Resolve) call it unconditionally once done with the
// path, so it is always safe to invoke.
func (d *Downloader) Download(ctx context.Context, url string) (string, func(), error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, aerrors.Wrap(err, aerrors.KindDownload, "building download request").Contextf("url %q", url)
	}

	dlog.Infof(ctx, "downloading %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, aerrors.Wrap(err, aerrors.KindDownload, "fetching source").Contextf("url %q", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, aerrors.New(aerrors.KindDownload, "non-2xx response fetching source").
			Contextf("url %q", url).Contextf("status %s", resp.Status)
	}

	f, err := os.CreateTemp(d.Dir, "acacia-download-*")
	if err != nil {
		return "", nil, aerrors.Wrap(err, aerrors.KindIo, "creating download temp file").Contextf("url %q", url)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		cleanup()
		return "", nil, aerrors.Wrap(err, aerrors.KindDownload, "writing downloaded source").Contextf("url %q", url)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, aerrors.Wrap(err, aerrors.KindIo, "closing downloaded source").Contextf("url %q", url)
	}

	return path, cleanup, nil
}

var _ formula.Downloader = (*Downloader)(nil)
