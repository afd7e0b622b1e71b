package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLiteStoreTest struct {
	suite.Suite
	ctx   context.Context
	store *SQLiteStore
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreTest))
}

func (t *SQLiteStoreTest) SetupTest() {
	t.ctx = context.Background()

	dbPath := filepath.Join(t.T().TempDir(), "cache.db")
	store, err := Open(dbPath)
	require.NoError(t.T(), err)
	require.NoError(t.T(), store.Initialize(t.ctx))
	t.store = store
}

func (t *SQLiteStoreTest) TearDownTest() {
	require.NoError(t.T(), t.store.Close())
}

// Invariant: the pseudo-root has inode 1 and is a directory.
func (t *SQLiteStoreTest) TestBootstrapInsertsRoot() {
	root, err := t.store.GetByInode(t.ctx, RootInode)
	require.NoError(t.T(), err)
	t.Equal(RootInode, root.Inode)
	t.True(root.IsDir)
}

// Initialize must be idempotent.
func (t *SQLiteStoreTest) TestInitializeIsIdempotent() {
	require.NoError(t.T(), t.store.Initialize(t.ctx))

	root, err := t.store.GetByInode(t.ctx, RootInode)
	require.NoError(t.T(), err)
	t.Equal(RootInode, root.Inode)
}

func makeObjectDelta(remoteID, name string, parents ...string) Delta {
	return Delta{
		RemoteID: remoteID,
		Object: &Object{
			RemoteID:     remoteID,
			Name:         name,
			IsDir:        false,
			Size:         1024,
			LastModified: time.Unix(1700000000, 0),
			DownloadURL:  "https://example.invalid/" + remoteID,
			CanTrash:     true,
		},
		Parents: parents,
	}
}

// Scenario: add then rename. The inode must not change and the old name
// must stop resolving.
func (t *SQLiteStoreTest) TestAddThenRenamePreservesInode() {
	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{makeObjectDelta("A", "foo", RootRemoteID)}))

	foo, err := t.store.GetChildByName(t.ctx, RootInode, "foo")
	require.NoError(t.T(), err)
	originalInode := foo.Inode

	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{makeObjectDelta("A", "bar", RootRemoteID)}))

	bar, err := t.store.GetChildByName(t.ctx, RootInode, "bar")
	require.NoError(t.T(), err)
	t.Equal(originalInode, bar.Inode)

	_, err = t.store.GetChildByName(t.ctx, RootInode, "foo")
	t.ErrorIs(err, ErrNotFound)
}

// Scenario: trashed file disappears entirely, edges included.
func (t *SQLiteStoreTest) TestTrashedFileIsRemoved() {
	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{makeObjectDelta("A", "foo", RootRemoteID)}))

	foo, err := t.store.GetChildByName(t.ctx, RootInode, "foo")
	require.NoError(t.T(), err)

	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{{Removed: true, RemoteID: "A"}}))

	_, err = t.store.GetByInode(t.ctx, foo.Inode)
	t.ErrorIs(err, ErrNotFound)

	children, err := t.store.ListChildren(t.ctx, RootInode, 0, 10)
	require.NoError(t.T(), err)
	t.Empty(children)
}

// process_changes(delta); process_changes(delta) yields the same state.
func (t *SQLiteStoreTest) TestProcessChangesIsIdempotent() {
	delta := makeObjectDelta("A", "foo", RootRemoteID)

	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{delta}))
	first, err := t.store.GetChildByName(t.ctx, RootInode, "foo")
	require.NoError(t.T(), err)

	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{delta}))
	second, err := t.store.GetChildByName(t.ctx, RootInode, "foo")
	require.NoError(t.T(), err)

	t.Equal(first, second)

	children, err := t.store.ListChildren(t.ctx, RootInode, 0, 10)
	require.NoError(t.T(), err)
	t.Len(children, 1)
}

func (t *SQLiteStoreTest) TestStoreCursorRoundTrip() {
	require.NoError(t.T(), t.store.StoreCursor(t.ctx, "abc123"))

	token, err := t.store.GetCursor(t.ctx)
	require.NoError(t.T(), err)
	t.Equal("abc123", token)
}

func (t *SQLiteStoreTest) TestGetCursorDefaultsToOne() {
	token, err := t.store.GetCursor(t.ctx)
	require.NoError(t.T(), err)
	t.Equal("1", token)
}

// Invariant 4: exactly |P| parent rows after a batch, each referencing a
// parent in P.
func (t *SQLiteStoreTest) TestMultipleParents() {
	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{makeObjectDelta("dirA", "dirA", RootRemoteID)}))
	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{makeObjectDelta("dirB", "dirB", RootRemoteID)}))

	shared := Delta{
		RemoteID: "shared",
		Object: &Object{
			RemoteID:     "shared",
			Name:         "shared.txt",
			LastModified: time.Unix(1700000000, 0),
			DownloadURL:  "https://example.invalid/shared",
		},
		Parents: []string{"dirA", "dirB"},
	}
	require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{shared}))

	dirA, err := t.store.GetChildByName(t.ctx, RootInode, "dirA")
	require.NoError(t.T(), err)
	dirB, err := t.store.GetChildByName(t.ctx, RootInode, "dirB")
	require.NoError(t.T(), err)

	fromA, err := t.store.GetChildByName(t.ctx, dirA.Inode, "shared.txt")
	require.NoError(t.T(), err)
	fromB, err := t.store.GetChildByName(t.ctx, dirB.Inode, "shared.txt")
	require.NoError(t.T(), err)
	t.Equal(fromA.Inode, fromB.Inode)
}

func (t *SQLiteStoreTest) TestListChildrenIsOrderedByInodeAndPaged() {
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t.T(), t.store.ProcessChanges(t.ctx, []Delta{makeObjectDelta(name, name, RootRemoteID)}))
	}

	page1, err := t.store.ListChildren(t.ctx, RootInode, 0, 2)
	require.NoError(t.T(), err)
	require.Len(t.T(), page1, 2)
	t.Equal("a", page1[0].Name)
	t.Equal("b", page1[1].Name)

	page2, err := t.store.ListChildren(t.ctx, RootInode, 2, 2)
	require.NoError(t.T(), err)
	require.Len(t.T(), page2, 2)
	t.Equal("c", page2[0].Name)
	t.Equal("d", page2[1].Name)
}

func (t *SQLiteStoreTest) TestGetByInodeNotFound() {
	_, err := t.store.GetByInode(t.ctx, 999999)
	t.ErrorIs(err, ErrNotFound)
}
