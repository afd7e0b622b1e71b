// Package metadata persists everything plexdrive knows about the remote
// namespace: objects, their parent edges, and the change-stream cursor. It
// assigns the stable inode numbers the FUSE adapter hands to the kernel.
package metadata

import (
	"context"
	"errors"
	"time"
)

// RootRemoteID is the remote id of the pseudo-root, always assigned inode 1.
const RootRemoteID = "root"

// RootInode is the inode number reserved for the pseudo-root.
const RootInode uint64 = 1

// ErrNotFound is returned by lookups that find no matching row. Callers in
// internal/fs translate this directly to ENOENT.
var ErrNotFound = errors.New("metadata: not found")

// Object is a remote file or folder as recorded in the store.
type Object struct {
	Inode        uint64
	RemoteID     string
	Name         string
	IsDir        bool
	Size         uint64
	LastModified time.Time
	DownloadURL  string
	CanTrash     bool
}

// Delta is a single normalized change, ready to be applied by ProcessChanges.
// Removed deltas only need RemoteID populated; everything else requires
// Object and the full current Parents set (remote ids of all parents).
type Delta struct {
	Removed  bool
	RemoteID string
	Object   *Object
	Parents  []string
}

// Store is the persistence contract used by the Change Watcher and the FUSE
// Adapter. A single implementation (SQLiteStore) backs both; it is expressed
// as an interface so each consumer can be tested against a fake.
type Store interface {
	// Initialize creates the schema if absent and inserts the pseudo-root.
	// Safe to call more than once.
	Initialize(ctx context.Context) error

	// ProcessChanges applies a batch of deltas atomically. On failure, no
	// delta in the batch is applied and the cursor must not be advanced by
	// the caller.
	ProcessChanges(ctx context.Context, deltas []Delta) error

	// GetCursor returns the current change-stream cursor, or "1" if unset.
	GetCursor(ctx context.Context) (string, error)

	// StoreCursor persists the change-stream cursor.
	StoreCursor(ctx context.Context, token string) error

	// GetByInode returns the object with the given inode, or ErrNotFound.
	GetByInode(ctx context.Context, inode uint64) (Object, error)

	// ListChildren returns a deterministic (inode-ascending) page of the
	// children of parentInode.
	ListChildren(ctx context.Context, parentInode uint64, offset, limit int) ([]Object, error)

	// GetChildByName returns the child of parentInode with the given name,
	// or ErrNotFound.
	GetChildByName(ctx context.Context, parentInode uint64, name string) (Object, error)
}
