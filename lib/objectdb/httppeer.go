// Copyright (C) 2024  AcaciaLinux contributors
//
// SPDX-License-Identifier: GPL-2.0-or-later

package objectdb

import (
	"context"
	"net/http"

	"github.com/AcaciaLinux/tooling-go/lib/aerrors"
	"github.com/AcaciaLinux/tooling-go/lib/object"
	"github.com/AcaciaLinux/tooling-go/lib/oid"
)

// HTTPPeer is a Peer backed by an object server (cmd/trunk) speaking the
// `GET /object/<hex-oid>` pull protocol.
type HTTPPeer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPeer returns a Peer that fetches objects from baseURL, an
// object server's root (e.g. "http://trunk.internal:8080"). A nil
// client uses http.DefaultClient.
func NewHTTPPeer(baseURL string, client *http.Client) *HTTPPeer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPeer{baseURL: baseURL, client: client}
}

// TryRetrieve implements Peer via GET /object/<hex-oid>.
func (p *HTTPPeer) TryRetrieve(ctx context.Context, id oid.OID) (*object.Reader, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/object/"+id.Hex(), nil)
	if err != nil {
		return nil, false, aerrors.Wrap(err, aerrors.KindIo, "building object fetch request").Contextf("oid %s", id)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, false, aerrors.Wrap(err, aerrors.KindDownload, "fetching object from peer").Contextf("oid %s", id)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		r, err := object.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, false, aerrors.Wrap(err, aerrors.KindCorruptObject, "parsing object fetched from peer").Contextf("oid %s", id)
		}
		return r, true, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, false, nil
	default:
		resp.Body.Close()
		return nil, false, aerrors.New(aerrors.KindDownload, "peer returned unexpected status").
			Contextf("oid %s", id).Contextf("status %s", resp.Status)
	}
}

// Exists implements Peer. It is a best-effort check: any error talking
// to the peer is treated as "does not exist" rather than surfaced,
// matching how Pull already treats a TryRetrieve miss.
func (p *HTTPPeer) Exists(ctx context.Context, id oid.OID) bool {
	r, ok, err := p.TryRetrieve(ctx, id)
	if r != nil {
		r.Close()
	}
	return err == nil && ok
}

var _ Peer = (*HTTPPeer)(nil)
