// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package tree implements the Tree model: a recursive, content-addressed
// directory representation of files, symlinks, and nested subtrees,
// serialized with the "ALTR" codec and deployable back onto a filesystem.
package tree

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
	"github.com/AcaciaLinux/tooling-go/lib/packing"
	"github.com/AcaciaLinux/tooling-go/lib/unixinfo"
)

var magic = [4]byte{'A', 'L', 'T', 'R'}

const version = 0

// entryTag is the 1-byte wire discriminant for an Entry's kind.
type entryTag uint8

const (
	tagFile    entryTag = 0x01
	tagSymlink entryTag = 0x02
	tagSubtree entryTag = 0x05
)

// Entry is one line of a Tree: a File, a Symlink, or a Subtree. Exactly one
// of the kind-specific fields is meaningful, selected by Kind.
type Entry struct {
	Kind entryTag
	Info unixinfo.Info
	Name string

	// OID is the referenced blob (File) or child Tree (Subtree).
	OID oid.OID
	// Target is the literal link destination (Symlink only).
	Target string
}

// NewFile builds a File entry referencing blob oid id.
func NewFile(name string, info unixinfo.Info, id oid.OID) Entry {
	return Entry{Kind: tagFile, Info: info, Name: name, OID: id}
}

// NewSymlink builds a Symlink entry pointing at target, stored verbatim.
func NewSymlink(name string, info unixinfo.Info, target string) Entry {
	return Entry{Kind: tagSymlink, Info: info, Name: name, Target: target}
}

// NewSubtree builds a Subtree entry referencing child Tree oid id.
func NewSubtree(name string, info unixinfo.Info, id oid.OID) Entry {
	return Entry{Kind: tagSubtree, Info: info, Name: name, OID: id}
}

func (e Entry) IsFile() bool    { return e.Kind == tagFile }
func (e Entry) IsSymlink() bool { return e.Kind == tagSymlink }
func (e Entry) IsSubtree() bool { return e.Kind == tagSubtree }

// Tree is an ordered sequence of Entries, stored in lexical order by name.
type Tree struct {
	Entries []Entry
}

// Encode renders the Tree's "ALTR" payload, in the entries' current order
// (callers that need the canonical, content-addressable form must sort
// first; Index does this).
func (t *Tree) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	if err := packing.PackU8(&buf, version); err != nil {
		return nil, err
	}
	for _, e := range t.Entries {
		if err := encodeEntry(&buf, e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeEntry(w io.Writer, e Entry) error {
	if err := packing.PackU8(w, uint8(e.Kind)); err != nil {
		return err
	}
	switch e.Kind {
	case tagFile:
		if err := packing.Raw32(w, e.OID.Bytes()); err != nil {
			return err
		}
		if err := e.Info.Pack(w); err != nil {
			return err
		}
		return packing.PackString(w, e.Name)
	case tagSymlink:
		if err := e.Info.Pack(w); err != nil {
			return err
		}
		if err := packing.PackString(w, e.Name); err != nil {
			return err
		}
		return packing.PackString(w, e.Target)
	case tagSubtree:
		if err := packing.Raw32(w, e.OID.Bytes()); err != nil {
			return err
		}
		if err := e.Info.Pack(w); err != nil {
			return err
		}
		return packing.PackString(w, e.Name)
	default:
		return aerrors.New(aerrors.KindAssertion, "encoding tree entry with unknown tag")
	}
}

// Decode parses a Tree from its "ALTR" payload.
func Decode(r io.Reader) (*Tree, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, aerrors.Wrap(err, aerrors.KindIo, "reading tree magic")
	}
	if gotMagic != magic {
		return nil, aerrors.New(aerrors.KindCorruptObject, "tree magic is not \"ALTR\"")
	}

	gotVersion, ok, err := packing.UnpackU8(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, aerrors.New(aerrors.KindCorruptObject, "tree truncated before version byte")
	}
	if gotVersion != version {
		return nil, aerrors.New(aerrors.KindUnsupportedVersion, "unsupported tree version")
	}

	var entries []Entry
	for {
		rawTag, ok, err := packing.UnpackU8(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		e, err := decodeEntry(r, entryTag(rawTag))
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return &Tree{Entries: entries}, nil
}

func decodeEntry(r io.Reader, tag entryTag) (Entry, error) {
	switch tag {
	case tagFile:
		rawOID, ok, err := packing.UnpackRaw32(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree file entry truncated before oid")
		}
		id, err := oid.FromBytes(rawOID[:])
		if err != nil {
			return Entry{}, err
		}
		info, ok, err := unixinfo.Unpack(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree file entry truncated before unix info")
		}
		name, ok, err := packing.UnpackString(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree file entry truncated before name")
		}
		return NewFile(name, info, id), nil

	case tagSymlink:
		info, ok, err := unixinfo.Unpack(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree symlink entry truncated before unix info")
		}
		name, ok, err := packing.UnpackString(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree symlink entry truncated before name")
		}
		target, ok, err := packing.UnpackString(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree symlink entry truncated before target")
		}
		return NewSymlink(name, info, target), nil

	case tagSubtree:
		rawOID, ok, err := packing.UnpackRaw32(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree subtree entry truncated before oid")
		}
		id, err := oid.FromBytes(rawOID[:])
		if err != nil {
			return Entry{}, err
		}
		info, ok, err := unixinfo.Unpack(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree subtree entry truncated before unix info")
		}
		name, ok, err := packing.UnpackString(r)
		if err != nil {
			return Entry{}, err
		}
		if !ok {
			return Entry{}, aerrors.New(aerrors.KindCorruptObject, "tree subtree entry truncated before name")
		}
		return NewSubtree(name, info, id), nil

	default:
		return Entry{}, aerrors.New(aerrors.KindUnknownEnum, "unknown tree entry tag")
	}
}

// dependencies returns the OIDs a Tree's own Object header must list: every
// File and Subtree entry's OID, in entry order.
func (t *Tree) dependencies() []oid.OID {
	var deps []oid.OID
	for _, e := range t.Entries {
		if e.IsFile() || e.IsSubtree() {
			deps = append(deps, e.OID)
		}
	}
	return deps
}

// insert sorts t's entries by name, serializes it, and inserts it into db,
// returning the resulting Object.
func (t *Tree) insert(ctx context.Context, db *objectdb.ObjectDatabase, compression object.Compression) (*object.Object, error) {
	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Name < t.Entries[j].Name })

	payload, err := t.Encode()
	if err != nil {
		return nil, err
	}
	return db.InsertStream(ctx, bytes.NewReader(payload), object.TypeTree, t.dependencies(), compression)
}

// Index recursively indexes the filesystem directory at root, inserting
// every regular file and nested subtree Tree into db, and finally the root
// Tree itself. It returns the root Tree and its Object.
func Index(ctx context.Context, root string, db *objectdb.ObjectDatabase, compression object.Compression) (*Tree, *object.Object, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "reading directory").Contextf("path %q", root)
	}

	t := &Tree{}
	for _, de := range dirEntries {
		name := de.Name()
		path := filepath.Join(root, name)

		lstat, err := os.Lstat(path)
		if err != nil {
			return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "lstat").Contextf("path %q", path)
		}
		info, err := unixinfo.FromFileInfo(lstat)
		if err != nil {
			return nil, nil, err
		}

		switch {
		case lstat.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "reading link target").Contextf("path %q", path)
			}
			t.Entries = append(t.Entries, NewSymlink(name, info, target))

		case lstat.IsDir():
			_, childObj, err := Index(ctx, path, db, compression)
			if err != nil {
				return nil, nil, err
			}
			t.Entries = append(t.Entries, NewSubtree(name, info, childObj.OID))

		default:
			f, err := os.Open(path)
			if err != nil {
				return nil, nil, aerrors.Wrap(err, aerrors.KindIo, "opening file").Contextf("path %q", path)
			}
			obj, err := db.InsertStream(ctx, f, object.TypeOther, nil, compression)
			f.Close()
			if err != nil {
				return nil, nil, err
			}
			t.Entries = append(t.Entries, NewFile(name, info, obj.OID))
		}
	}

	obj, err := t.insert(ctx, db, compression)
	if err != nil {
		return nil, nil, err
	}
	return t, obj, nil
}

// Walk visits every entry in stored order, recursing into subtrees, calling
// fn with the directory-relative path the entry lives under. Walking stops
// early (without error) if fn returns false.
func (t *Tree) Walk(ctx context.Context, db *objectdb.ObjectDatabase, fn func(dir string, e Entry) (bool, error)) error {
	_, err := t.walk(ctx, db, "", fn)
	return err
}

// walk reports whether the caller should keep walking.
func (t *Tree) walk(ctx context.Context, db *objectdb.ObjectDatabase, dir string, fn func(string, Entry) (bool, error)) (bool, error) {
	for _, e := range t.Entries {
		cont, err := fn(dir, e)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
		if e.IsSubtree() {
			child, err := readTree(ctx, db, e.OID)
			if err != nil {
				return false, err
			}
			if cont, err := child.walk(ctx, db, filepath.Join(dir, e.Name), fn); err != nil || !cont {
				return false, err
			}
		}
	}
	return true, nil
}

func readTree(ctx context.Context, db *objectdb.ObjectDatabase, id oid.OID) (*Tree, error) {
	r, err := db.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Decode(r.Payload)
}

// Deploy materializes t under root: files are created and streamed from db,
// symlinks are recreated verbatim, and subtrees recurse into freshly-made
// directories. unix_info is applied to each entry after creation.
func Deploy(ctx context.Context, t *Tree, root string, db *objectdb.ObjectDatabase) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return aerrors.Wrap(err, aerrors.KindIo, "creating deploy root").Contextf("path %q", root)
	}
	return t.Walk(ctx, db, func(dir string, e Entry) (bool, error) {
		path := filepath.Join(root, dir, e.Name)
		switch {
		case e.IsFile():
			r, err := db.Read(ctx, e.OID)
			if err != nil {
				return false, err
			}
			defer r.Close()
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				return false, aerrors.Wrap(err, aerrors.KindIo, "creating file").Contextf("path %q", path)
			}
			_, copyErr := io.Copy(f, r.Payload)
			closeErr := f.Close()
			if copyErr != nil {
				return false, aerrors.Wrap(copyErr, aerrors.KindIo, "streaming file contents").Contextf("path %q", path)
			}
			if closeErr != nil {
				return false, aerrors.Wrap(closeErr, aerrors.KindIo, "closing file").Contextf("path %q", path)
			}
			if err := unixinfo.Apply(path, e.Info); err != nil {
				return false, err
			}

		case e.IsSymlink():
			if err := os.Symlink(e.Target, path); err != nil {
				return false, aerrors.Wrap(err, aerrors.KindIo, "creating symlink").Contextf("path %q", path)
			}
			if err := unixinfo.Apply(path, e.Info); err != nil {
				return false, err
			}

		case e.IsSubtree():
			if err := os.MkdirAll(path, 0o755); err != nil {
				return false, aerrors.Wrap(err, aerrors.KindIo, "creating subtree directory").Contextf("path %q", path)
			}
			if err := unixinfo.Apply(path, e.Info); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}
