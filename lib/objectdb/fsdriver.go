// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/caching"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// objectFileExtension is the suffix every stored object file carries.
const objectFileExtension = ".oba"

// DefaultDepth is the default path-splitting depth for FSDriver (§6:
// "<root>/<d0d1>/<d2d3>/.../<full_hex>.oba # depth-5 default").
const DefaultDepth = 5

// FSDriver is the canonical filesystem-backed Driver: objects live at
// root/<oid.ToPath(depth)>.oba, and inserts are published via a
// temp-file-then-rename so concurrent writers never observe a partial
// file.
type FSDriver struct {
	root  string
	depth int

	// headers caches parsed headers for recently-touched OIDs, so that
	// the existence checks InsertStream and InsertPrehashed make through
	// Header don't reopen and reparse the same file.
	headers caching.Cache[oid.OID, *object.Object]
}

var _ Driver = (*FSDriver)(nil)

// headerSource loads a *object.Object by opening just enough of the file to
// parse its header, per caching.Source's Load/Flush contract.
type headerSource struct {
	driver *FSDriver
}

func (s headerSource) Load(ctx context.Context, id oid.OID, v **object.Object) {
	f, err := os.Open(s.driver.oidPath(id))
	if err != nil {
		*v = nil
		return
	}
	defer f.Close()
	hdr, err := object.ReadHeader(f)
	if err != nil {
		*v = nil
		return
	}
	*v = hdr
}

func (s headerSource) Flush(context.Context, **object.Object) {}

// NewFSDriver opens (creating if absent) a filesystem object store rooted
// at root, splitting OID paths at depth (use DefaultDepth unless a caller
// has a reason not to) and caching up to headerCacheSize recently-read
// headers.
func NewFSDriver(root string, depth int, headerCacheSize int) (*FSDriver, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "creating object database root").Contextf("path %q", root)
	}
	if err := os.MkdirAll(filepath.Join(root, "temp"), 0o755); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "creating object database temp directory").Contextf("path %q", root)
	}
	d := &FSDriver{root: root, depth: depth}
	if headerCacheSize > 0 {
		d.headers = caching.NewLRUCache[oid.OID, *object.Object](headerCacheSize, headerSource{driver: d})
	}
	return d, nil
}

// Root returns the driver's root directory.
func (d *FSDriver) Root() string {
	return d.root
}

func (d *FSDriver) oidPath(id oid.OID) string {
	return filepath.Join(d.root, id.ToPath(d.depth)) + objectFileExtension
}

func (d *FSDriver) tempPath() string {
	return filepath.Join(d.root, "temp", uuid.NewString())
}

// Header returns the parsed header for id without streaming its payload,
// using the driver's header cache when one is configured.
func (d *FSDriver) Header(ctx context.Context, id oid.OID) (*object.Object, bool, error) {
	if d.headers == nil {
		f, err := os.Open(d.oidPath(id))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}
			return nil, false, aerrors.Wrap(err, aerrors.KindIo, "opening object file").Contextf("oid %s", id)
		}
		defer f.Close()
		hdr, err := object.ReadHeader(f)
		if err != nil {
			return nil, false, err
		}
		return hdr, true, nil
	}

	hdr := d.headers.Acquire(ctx, id)
	found := *hdr
	d.headers.Release(id)
	if found == nil {
		// Drop the miss so a later lookup sees the object once published.
		d.headers.Delete(id)
		return nil, false, nil
	}
	return found, true, nil
}

// InsertStream implements Driver.
func (d *FSDriver) InsertStream(ctx context.Context, src io.ReadSeeker, ty object.Type, deps []oid.OID, compression object.Compression) (*object.Object, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "seeking to start of insert source")
	}
	h := oid.NewHasher()
	if _, err := io.Copy(h, src); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "hashing insert source")
	}
	for _, dep := range deps {
		h.WriteOID(dep)
	}
	id := h.Sum()

	if existing, ok, err := d.Header(ctx, id); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "seeking back to start of insert source")
	}
	return d.publish(ctx, id, ty, deps, compression, src)
}

// InsertPrehashed implements Driver.
func (d *FSDriver) InsertPrehashed(ctx context.Context, src io.Reader, expected oid.OID, ty object.Type, deps []oid.OID, compression object.Compression) (*object.Object, error) {
	if existing, ok, err := d.Header(ctx, expected); err != nil {
		return nil, err
	} else if ok {
		return existing, nil
	}

	// Spool to a buffer while hashing, so a mismatch leaves nothing on
	// disk at all (not even a temp file).
	var buf bytes.Buffer
	h := oid.NewHasher()
	if _, err := io.Copy(io.MultiWriter(&buf, h), src); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "streaming prehashed insert")
	}
	for _, dep := range deps {
		h.WriteOID(dep)
	}
	got := h.Sum()
	if got != expected {
		return nil, aerrors.NewOIDMismatch(expected.Hex(), got.Hex())
	}

	return d.publish(ctx, expected, ty, deps, compression, bytes.NewReader(buf.Bytes()))
}

// publish writes a header + compressed payload to a uniquely-named temp
// file under root/temp/, then renames it into its final OID-addressed
// path, creating parent directories on demand.
func (d *FSDriver) publish(ctx context.Context, id oid.OID, ty object.Type, deps []oid.OID, compression object.Compression, payload io.Reader) (*object.Object, error) {
	o := &object.Object{OID: id, Type: ty, Compression: compression, Dependencies: deps}

	raw, err := io.ReadAll(payload)
	if err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "reading object payload")
	}
	encoded, err := object.EncodeToBytes(id, ty, deps, compression, raw)
	if err != nil {
		return nil, err
	}

	tempPath := d.tempPath()
	if err := os.WriteFile(tempPath, encoded, 0o644); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "writing temporary object file").Contextf("path %q", tempPath)
	}

	finalPath := d.oidPath(id)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		os.Remove(tempPath)
		return nil, aerrors.Wrap(err, aerrors.KindIo, "creating object parent directory").Contextf("path %q", finalPath)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, aerrors.Wrap(err, aerrors.KindIo, "publishing object file").Contextf("path %q", finalPath)
	}
	return o, nil
}

// TryRetrieve implements Driver.
func (d *FSDriver) TryRetrieve(ctx context.Context, id oid.OID) (*object.Reader, bool, error) {
	f, err := os.Open(d.oidPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, aerrors.Wrap(err, aerrors.KindIo, "opening object file").Contextf("oid %s", id)
	}
	r, err := object.NewReader(f)
	if err != nil {
		f.Close()
		return nil, false, err
	}
	return r, true, nil
}

// Exists implements Driver.
func (d *FSDriver) Exists(ctx context.Context, id oid.OID) bool {
	_, err := os.Stat(d.oidPath(id))
	return err == nil
}
