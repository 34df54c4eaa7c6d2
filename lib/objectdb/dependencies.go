// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb

import (
	"context"

	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// Dependencies resolves id's dependency closure: its direct dependencies
// if recursive is false, or every object transitively reachable from it
// (each OID appearing once, in first-visited order) if recursive is
// true. id itself is not included.
func (db *ObjectDatabase) Dependencies(ctx context.Context, id oid.OID, recursive bool) ([]oid.OID, error) {
	r, err := db.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	direct := r.Object.Dependencies
	r.Close()

	if !recursive {
		return direct, nil
	}

	seen := make(map[oid.OID]bool)
	var closure []oid.OID
	var walk func(oid.OID) error
	walk = func(id oid.OID) error {
		r, err := db.Read(ctx, id)
		if err != nil {
			return err
		}
		deps := r.Object.Dependencies
		r.Close()

		for _, dep := range deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			closure = append(closure, dep)
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(id); err != nil {
		return nil, err
	}
	return closure, nil
}
