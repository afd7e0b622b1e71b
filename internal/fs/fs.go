// Package fs implements the read-only FUSE adapter: it translates kernel
// callbacks into Metadata Store lookups and chunk pipeline reads. All
// objects it serves are immutable snapshots, so unlike a writable file
// system there is no per-inode lock beyond the single file system mutex
// guarding the handle table.
package fs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/plexdrive/plexdrive/internal/chunk"
	"github.com/plexdrive/plexdrive/internal/logger"
	"github.com/plexdrive/plexdrive/internal/metadata"
)

// readdirPageSize bounds how many children ListChildren fetches per
// ReadDir call; the kernel's opaque, monotonic offset drives pagination.
const readdirPageSize = 10

// attrTTL is how long the kernel may cache attributes and directory
// entries plexdrive hands back, per the design's fixed 1s TTL.
const attrTTL = 1 * time.Second

// ServerConfig configures the file system server.
type ServerConfig struct {
	Store     metadata.Store
	Chunks    chunk.Fetcher
	ChunkSize uint64

	Uid uint32
	Gid uint32
}

// fileHandle is the snapshot taken at open time and served for every read
// against that handle, per the state machine: absent -> opened (on Open)
// -> absent (on Release).
type fileHandle struct {
	object metadata.Object
}

type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	store     metadata.Store
	chunks    chunk.Fetcher
	chunkSize uint64
	uid       uint32
	gid       uint32

	mu           sync.Mutex
	handles      map[fuseops.HandleID]*fileHandle
	nextHandleID fuseops.HandleID
}

// NewServer constructs a fuse.Server backed by cfg.
func NewServer(cfg *ServerConfig) (fuse.Server, error) {
	if cfg.ChunkSize == 0 {
		return nil, fmt.Errorf("fs: ChunkSize must be non-zero")
	}

	fs := &fileSystem{
		store:     cfg.Store,
		chunks:    cfg.Chunks,
		chunkSize: cfg.ChunkSize,
		uid:       cfg.Uid,
		gid:       cfg.Gid,
		handles:   make(map[fuseops.HandleID]*fileHandle),
	}

	return fuseutil.NewFileSystemServer(fs), nil
}

func (fs *fileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	obj, err := fs.store.GetByInode(ctx, uint64(op.Inode))
	if err != nil {
		return translateMetadataErr(err)
	}

	op.Attributes = fs.attributesFor(obj)
	op.AttributesExpiration = time.Now().Add(attrTTL)
	return nil
}

func (fs *fileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	child, err := fs.store.GetChildByName(ctx, uint64(op.Parent), op.Name)
	if err != nil {
		return translateMetadataErr(err)
	}

	op.Entry.Child = fuseops.InodeID(child.Inode)
	op.Entry.Attributes = fs.attributesFor(child)
	op.Entry.AttributesExpiration = time.Now().Add(attrTTL)
	op.Entry.EntryExpiration = time.Now().Add(attrTTL)
	return nil
}

func (fs *fileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	if _, err := fs.store.GetByInode(ctx, uint64(op.Inode)); err != nil {
		return translateMetadataErr(err)
	}

	fs.mu.Lock()
	op.Handle = fs.nextHandleID
	fs.nextHandleID++
	fs.mu.Unlock()

	return nil
}

func (fs *fileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	if op.Offset == 0 {
		op.BytesRead += fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseops.Dirent{
			Offset: 1,
			Inode:  op.Inode,
			Name:   ".",
			Type:   fuseops.DT_Directory,
		})
		op.BytesRead += fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseops.Dirent{
			Offset: 2,
			Inode:  op.Inode,
			Name:   "..",
			Type:   fuseops.DT_Directory,
		})
	}

	// Offsets 0 and 1 are reserved for "." and ".."; children start at offset
	// 2, so a page request begins at child index (offset - 2).
	childOffset := int(op.Offset)
	if childOffset < 2 {
		childOffset = 2
	}
	children, err := fs.store.ListChildren(ctx, uint64(op.Inode), childOffset-2, readdirPageSize)
	if err != nil {
		return translateMetadataErr(err)
	}
	if len(children) == 0 && op.Offset > 2 {
		// An empty page past the start terminates the listing.
		return fuse.ENOENT
	}

	for i, child := range children {
		direntType := fuseops.DT_File
		if child.IsDir {
			direntType = fuseops.DT_Directory
		}
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseops.Dirent{
			Offset: fuseops.DirOffset(childOffset + i + 1),
			Inode:  fuseops.InodeID(child.Inode),
			Name:   child.Name,
			Type:   direntType,
		})
		if n == 0 {
			// The kernel's buffer is full; it will call ReadDir again with the
			// offset of the last entry we wrote.
			break
		}
		op.BytesRead += n
	}

	return nil
}

func (fs *fileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	return nil
}

func (fs *fileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	obj, err := fs.store.GetByInode(ctx, uint64(op.Inode))
	if err != nil {
		logger.Errorf("fs: open of inode %d failed: %v", op.Inode, err)
		return fuse.EIO
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	op.Handle = fs.nextHandleID
	fs.nextHandleID++
	fs.handles[op.Handle] = &fileHandle{object: obj}

	return nil
}

func (fs *fileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.handles, op.Handle)
	return nil
}

func (fs *fileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	h, ok := fs.handles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		logger.Errorf("fs: read against stale handle %d", op.Handle)
		return fuse.EIO
	}

	cfg := chunk.NewConfig(h.object.RemoteID, h.object.DownloadURL, uint64(op.Offset), uint64(len(op.Dst)), h.object.Size, fs.chunkSize)
	data, err := fs.chunks.GetChunk(ctx, cfg)
	if err != nil {
		logger.Errorf("fs: reading %s at offset %d: %v", h.object.RemoteID, op.Offset, err)
		return fuse.EIO
	}

	op.BytesRead = copy(op.Dst, data)
	return nil
}

// attributesFor derives the attributes the kernel sees for obj. blocks
// (ceil(size/512)) isn't a field on fuseops.InodeAttributes; jacobsa/fuse
// computes it from Size when filling in the kernel's stat struct.
func (fs *fileSystem) attributesFor(obj metadata.Object) fuseops.InodeAttributes {
	perm := os.FileMode(0o644)
	if obj.IsDir {
		perm = os.FileMode(0o755) | os.ModeDir
	}

	return fuseops.InodeAttributes{
		Size:   obj.Size,
		Nlink:  0,
		Mode:   perm,
		Atime:  obj.LastModified,
		Mtime:  obj.LastModified,
		Ctime:  obj.LastModified,
		Crtime: obj.LastModified,
		Uid:    fs.uid,
		Gid:    fs.gid,
	}
}

func translateMetadataErr(err error) error {
	if err == metadata.ErrNotFound {
		return fuse.ENOENT
	}
	logger.Errorf("fs: metadata lookup failed: %v", err)
	return fuse.EIO
}
