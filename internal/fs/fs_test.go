package fs

import (
	"context"
	"testing"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/plexdrive/plexdrive/internal/chunk"
	"github.com/plexdrive/plexdrive/internal/metadata"
)

type fakeStore struct {
	objects  map[uint64]metadata.Object
	children map[uint64][]metadata.Object
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[uint64]metadata.Object), children: make(map[uint64][]metadata.Object)}
}

func (s *fakeStore) Initialize(context.Context) error { return nil }
func (s *fakeStore) ProcessChanges(context.Context, []metadata.Delta) error {
	return nil
}
func (s *fakeStore) GetCursor(context.Context) (string, error)        { return "1", nil }
func (s *fakeStore) StoreCursor(context.Context, string) error        { return nil }

func (s *fakeStore) GetByInode(_ context.Context, inode uint64) (metadata.Object, error) {
	o, ok := s.objects[inode]
	if !ok {
		return metadata.Object{}, metadata.ErrNotFound
	}
	return o, nil
}

func (s *fakeStore) ListChildren(_ context.Context, parentInode uint64, offset, limit int) ([]metadata.Object, error) {
	all := s.children[parentInode]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *fakeStore) GetChildByName(_ context.Context, parentInode uint64, name string) (metadata.Object, error) {
	for _, c := range s.children[parentInode] {
		if c.Name == name {
			return c, nil
		}
	}
	return metadata.Object{}, metadata.ErrNotFound
}

func (s *fakeStore) addChild(parentInode uint64, o metadata.Object) {
	s.objects[o.Inode] = o
	s.children[parentInode] = append(s.children[parentInode], o)
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) GetChunk(context.Context, chunk.Config) ([]byte, error) {
	return f.data, f.err
}

type FileSystemTest struct {
	suite.Suite
	store *fakeStore
	fs    *fileSystem
}

func TestFileSystemSuite(t *testing.T) {
	suite.Run(t, new(FileSystemTest))
}

func (t *FileSystemTest) SetupTest() {
	t.store = newFakeStore()
	t.store.objects[metadata.RootInode] = metadata.Object{Inode: metadata.RootInode, IsDir: true}

	t.fs = &fileSystem{
		store:     t.store,
		chunks:    &fakeFetcher{data: []byte("hello world")},
		chunkSize: 1024,
		uid:       1000,
		gid:       1000,
		handles:   make(map[fuseops.HandleID]*fileHandle),
	}
}

func (t *FileSystemTest) TestGetInodeAttributesForRoot() {
	op := &fuseops.GetInodeAttributesOp{Inode: metadata.RootInode}
	require.NoError(t.T(), t.fs.GetInodeAttributes(context.Background(), op))
	t.True(op.Attributes.Mode.IsDir())
}

func (t *FileSystemTest) TestGetInodeAttributesNotFound() {
	op := &fuseops.GetInodeAttributesOp{Inode: 999}
	err := t.fs.GetInodeAttributes(context.Background(), op)
	t.ErrorIs(err, fuse.ENOENT)
}

func (t *FileSystemTest) TestLookupInodeFindsChild() {
	t.store.addChild(metadata.RootInode, metadata.Object{Inode: 2, Name: "foo.txt", Size: 11, LastModified: time.Unix(1700000000, 0)})

	op := &fuseops.LookUpInodeOp{Parent: metadata.RootInode, Name: "foo.txt"}
	require.NoError(t.T(), t.fs.LookUpInode(context.Background(), op))
	t.Equal(fuseops.InodeID(2), op.Entry.Child)
	t.Equal(uint64(11), op.Entry.Attributes.Size)
}

func (t *FileSystemTest) TestLookupInodeNotFound() {
	op := &fuseops.LookUpInodeOp{Parent: metadata.RootInode, Name: "missing"}
	err := t.fs.LookUpInode(context.Background(), op)
	t.ErrorIs(err, fuse.ENOENT)
}

func (t *FileSystemTest) TestReadDirEmitsDotAndDotDotThenChildren() {
	t.store.addChild(metadata.RootInode, metadata.Object{Inode: 2, Name: "a"})
	t.store.addChild(metadata.RootInode, metadata.Object{Inode: 3, Name: "b"})

	op := &fuseops.ReadDirOp{Inode: metadata.RootInode, Offset: 0, Dst: make([]byte, 4096)}
	require.NoError(t.T(), t.fs.ReadDir(context.Background(), op))
	t.Greater(op.BytesRead, 0)
}

func (t *FileSystemTest) TestReadDirEmptyPageWithOffsetTerminatesListing() {
	op := &fuseops.ReadDirOp{Inode: metadata.RootInode, Offset: 5, Dst: make([]byte, 4096)}
	err := t.fs.ReadDir(context.Background(), op)
	t.ErrorIs(err, fuse.ENOENT)
}

func (t *FileSystemTest) TestOpenThenReadThenRelease() {
	t.store.addChild(metadata.RootInode, metadata.Object{
		Inode: 2, Name: "foo.txt", Size: 11, DownloadURL: "https://example.invalid/foo",
	})

	openOp := &fuseops.OpenFileOp{Inode: 2}
	require.NoError(t.T(), t.fs.OpenFile(context.Background(), openOp))

	readOp := &fuseops.ReadFileOp{Handle: openOp.Handle, Offset: 0, Dst: make([]byte, 11)}
	require.NoError(t.T(), t.fs.ReadFile(context.Background(), readOp))
	t.Equal("hello world", string(readOp.Dst[:readOp.BytesRead]))

	releaseOp := &fuseops.ReleaseFileHandleOp{Handle: openOp.Handle}
	require.NoError(t.T(), t.fs.ReleaseFileHandle(context.Background(), releaseOp))

	staleReadOp := &fuseops.ReadFileOp{Handle: openOp.Handle, Offset: 0, Dst: make([]byte, 11)}
	err := t.fs.ReadFile(context.Background(), staleReadOp)
	t.ErrorIs(err, fuse.EIO)
}

func (t *FileSystemTest) TestReadSurfacesChunkErrorAsEIO() {
	t.store.addChild(metadata.RootInode, metadata.Object{Inode: 2, Name: "foo.txt", Size: 11})
	t.fs.chunks = &fakeFetcher{err: context.DeadlineExceeded}

	openOp := &fuseops.OpenFileOp{Inode: 2}
	require.NoError(t.T(), t.fs.OpenFile(context.Background(), openOp))

	readOp := &fuseops.ReadFileOp{Handle: openOp.Handle, Offset: 0, Dst: make([]byte, 11)}
	err := t.fs.ReadFile(context.Background(), readOp)
	t.ErrorIs(err, fuse.EIO)
}
