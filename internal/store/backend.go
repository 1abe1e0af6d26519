// Package store implements load-all / replace-all persistence for named
// record collections.
//
// A Collection serializes its whole content on every write; there are no
// partial updates. Each collection owns one mutex, and Update holds it across
// the load, the caller's mutation and the replace so that concurrent
// read-modify-write sequences never interleave.
package store

import (
	"context"
	"errors"
)

// ErrNotExist is returned by a Backend when the named collection has never
// been written.
var ErrNotExist = errors.New("store: collection does not exist")

// Backend persists opaque collection bodies by name.
type Backend interface {
	// Read returns the last body written for name, or ErrNotExist.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write replaces the body for name. Readers must observe either the
	// previous body or the new one, never a mix.
	Write(ctx context.Context, name string, body []byte) error
	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error
}
