// Package store persists live trees as a checkpoint snapshot followed by a
// journal of the patches emitted since.
//
// A Store holds any number of named journals. Journal attaches to a live
// root and appends every patch event to the store; Checkpoint writes the
// current snapshot and drops the entries it covers. Replay rebuilds the
// latest snapshot from what was stored.
package store

import (
	"context"
	"errors"

	"github.com/signadot/treestate/ir"
	"github.com/signadot/treestate/patch"
)

var (
	ErrNotFound = errors.New("journal not found")
	ErrClosed   = errors.New("journal closed")
)

// Entry is one journal record: the patches of one patch event, in order.
type Entry struct {
	Seq     int64         `json:"seq"`
	Patches []patch.Patch `json:"patches"`
}

// Store is implemented by the memory, sqlite and redis backends.
type Store interface {
	// SaveSnapshot records sn as the state of name after entry seq and
	// drops entries with Seq <= seq.
	SaveSnapshot(ctx context.Context, name string, seq int64, sn *ir.Node) error
	// LoadSnapshot returns the last saved snapshot and its sequence number,
	// or ErrNotFound.
	LoadSnapshot(ctx context.Context, name string) (*ir.Node, int64, error)
	// Append adds an entry and returns its sequence number. Sequence
	// numbers of a journal increase and continue across snapshots.
	Append(ctx context.Context, name string, ps []patch.Patch) (int64, error)
	// Entries returns the entries of name with Seq > after, in order.
	Entries(ctx context.Context, name string, after int64) ([]Entry, error)
	Delete(ctx context.Context, name string) error
	Close() error
}
