// Package remote defines the narrow contracts plexdrive's core depends on
// for talking to the outside world: a credential provider that hands back
// bearer tokens, and a transport that lists changes, fetches object
// metadata, and performs ranged downloads. The core (internal/changewatcher,
// internal/chunk) is written against these interfaces only, so it can be
// tested with fakes; internal/remote/auth and internal/remote/drive provide
// the concrete implementations used by cmd.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plexdrive/plexdrive/internal/metadata"
)

// Object is the remote-side view of a file or folder, before a local inode
// has been assigned to it.
type Object struct {
	RemoteID     string
	Name         string
	IsDir        bool
	Size         uint64
	LastModified time.Time
	DownloadURL  string
	CanTrash     bool
}

// Change is a single entry from the remote change feed, already classified
// as a removal or an upsert.
type Change struct {
	Removed  bool
	RemoteID string

	// Populated only when !Removed.
	Object  *Object
	Parents []string
}

// CredentialProvider returns a bearer token valid for the given scopes. It
// is responsible for refreshing the underlying token as needed.
type CredentialProvider interface {
	Token(ctx context.Context, scopes []string) (string, error)
}

// Transport performs authorized calls against the remote API.
type Transport interface {
	// ListChanges requests a page of the change feed starting at cursor,
	// returning at most pageSize changes. next is set when more pages remain
	// in the current sweep; newStart is set when the sweep has reached the
	// present.
	ListChanges(ctx context.Context, cursor string, pageSize int64) (changes []Change, next string, newStart string, err error)

	// GetObject fetches a single object's metadata and parent set by remote
	// id.
	GetObject(ctx context.Context, remoteID string) (Object, []string, error)

	// RangedGet performs an authorized GET for [first, last] (inclusive) of
	// url, requiring an HTTP 206 Partial Content response.
	RangedGet(ctx context.Context, url string, first, last int64) ([]byte, error)
}

// Error kinds surfaced by Transport implementations. All of these present
// as EIO at the FUSE boundary.
var (
	ErrAuth         = errors.New("remote: authentication failed")
	ErrRequest      = errors.New("remote: request failed")
	ErrRead         = errors.New("remote: reading response failed")
	ErrMissingField = errors.New("remote: response missing required field")
)

// BadStatusError is returned when RangedGet receives a non-206 response.
type BadStatusError struct {
	Code int
	Body string
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("remote: unexpected HTTP status %d: %s", e.Code, e.Body)
}

// ToMetadataObject converts a remote.Object into the shape the metadata
// store persists.
func ToMetadataObject(o Object) metadata.Object {
	return metadata.Object{
		RemoteID:     o.RemoteID,
		Name:         o.Name,
		IsDir:        o.IsDir,
		Size:         o.Size,
		LastModified: o.LastModified,
		DownloadURL:  o.DownloadURL,
		CanTrash:     o.CanTrash,
	}
}
