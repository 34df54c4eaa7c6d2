// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// NewHandler returns the pull-protocol HTTP server for db: `GET
// /object/<hex-oid>` streams the raw object file (header + payload)
// with status 200, 404 if absent, or 406 if the OID fails to parse.
func NewHandler(ctx context.Context, db *ObjectDatabase) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/object/", func(w http.ResponseWriter, req *http.Request) {
		serveObject(ctx, db, w, req)
	})
	return mux
}

func serveObject(ctx context.Context, db *ObjectDatabase, w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	hex := strings.TrimPrefix(req.URL.Path, "/object/")
	id, err := oid.FromHex(hex)
	if err != nil {
		dlog.Debugf(ctx, "rejecting malformed oid %q: %v", hex, err)
		w.WriteHeader(http.StatusNotAcceptable)
		return
	}

	r, ok, err := db.TryRead(ctx, id)
	if err != nil {
		dlog.Errorf(ctx, "serving %s: %v", id, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer r.Close()

	// TryRead already decompressed the payload, so the header sent over
	// the wire must claim CompressionNone to match the bytes that
	// actually follow it; the OID is unaffected by this substitution
	// (OID stability holds across compressions by construction).
	wireHeader := *r.Object
	wireHeader.Compression = object.CompressionNone

	w.Header().Set("Content-Type", "application/octet-stream")
	if err := wireHeader.WriteHeader(w); err != nil {
		dlog.Errorf(ctx, "writing header for %s: %v", id, err)
		return
	}
	if _, err := io.Copy(w, r.Payload); err != nil {
		dlog.Errorf(ctx, "streaming payload for %s: %v", id, err)
	}
}
