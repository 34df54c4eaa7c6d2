// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/objectdb"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// buildRABC inserts R -> [A, B], B -> [C] into db and returns their OIDs.
func buildRABC(t *testing.T, ctx context.Context, db *objectdb.ObjectDatabase) (r, a, b, c oid.OID) {
	t.Helper()
	cObj, err := db.InsertStream(ctx, bytes.NewReader([]byte("C")), object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)
	bObj, err := db.InsertStream(ctx, bytes.NewReader([]byte("B")), object.TypeOther, []oid.OID{cObj.OID}, object.CompressionNone)
	require.NoError(t, err)
	aObj, err := db.InsertStream(ctx, bytes.NewReader([]byte("A")), object.TypeOther, nil, object.CompressionNone)
	require.NoError(t, err)
	rObj, err := db.InsertStream(ctx, bytes.NewReader([]byte("R")), object.TypeOther, []oid.OID{aObj.OID, bObj.OID}, object.CompressionNone)
	require.NoError(t, err)
	return rObj.OID, aObj.OID, bObj.OID, cObj.OID
}

func TestDependenciesDirect(t *testing.T) {
	ctx := context.Background()
	db := objectdb.New(newDriver(t))
	r, a, b, _ := buildRABC(t, ctx, db)

	deps, err := db.Dependencies(ctx, r, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []oid.OID{a, b}, deps)
}

func TestDependenciesRecursiveDedupes(t *testing.T) {
	ctx := context.Background()
	db := objectdb.New(newDriver(t))
	r, a, b, c := buildRABC(t, ctx, db)

	deps, err := db.Dependencies(ctx, r, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []oid.OID{a, b, c}, deps)
	assert.NotContains(t, deps, r)
}
