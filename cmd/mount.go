package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/spf13/cobra"
	"google.golang.org/api/drive/v3"

	"github.com/plexdrive/plexdrive/internal/changewatcher"
	"github.com/plexdrive/plexdrive/internal/chunk"
	"github.com/plexdrive/plexdrive/internal/clock"
	"github.com/plexdrive/plexdrive/internal/config"
	"github.com/plexdrive/plexdrive/internal/fs"
	"github.com/plexdrive/plexdrive/internal/logger"
	"github.com/plexdrive/plexdrive/internal/metadata"
	"github.com/plexdrive/plexdrive/internal/remote/auth"
	"github.com/plexdrive/plexdrive/internal/remote/drive"
)

const (
	defaultChunkSize    = 10 * 1024 * 1024
	defaultPreloadCount = 3
	defaultWorkerCount  = 4
)

var (
	mountUid uint32
	mountGid uint32
)

var mountCmd = &cobra.Command{
	Use:   "mount <path>",
	Short: "Mount the remote object store at path",
	Args:  cobra.ExactArgs(1),
	RunE:  runMount,
}

func init() {
	mountCmd.Flags().Uint32Var(&mountUid, "uid", 0, "uid that owns every inode")
	mountCmd.Flags().Uint32Var(&mountGid, "gid", 0, "gid that owns every inode")
}

func runMount(cmd *cobra.Command, args []string) error {
	mountPoint := args[0]
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	creds, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	tokenSource := auth.New(creds.ClientID, creds.ClientSecret, filepath.Join(configDir, config.TokenFileName), []string{drive.DriveReadonlyScope})

	transport, err := drive.New(ctx, tokenSource)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	store, err := metadata.Open(filepath.Join(configDir, config.DatabaseFileName))
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	defer store.Close()

	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	watcher := changewatcher.New(store, transport, clock.RealClock{})
	go func() {
		if err := watcher.Run(ctx); err != nil && err != context.Canceled {
			// The watcher aborted on a metadata-store failure (divergence
			// between the cursor and what was actually applied). The mount
			// itself keeps serving whatever it has already cached rather than
			// tearing down a live filesystem out from under open file handles.
			logger.Errorf("mount: change watcher exited: %v", err)
		}
	}()

	pipeline := chunk.NewPipeline(transport, defaultWorkerCount, defaultPreloadCount)

	server, err := fs.NewServer(&fs.ServerConfig{
		Store:     store,
		Chunks:    pipeline,
		ChunkSize: defaultChunkSize,
		Uid:       mountUid,
		Gid:       mountGid,
	})
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	mfs, err := fuse.Mount(mountPoint, server, &fuse.MountConfig{
		FSName:     "plexdrive",
		Subtype:    "plexdrive",
		VolumeName: "plexdrive",
		Options:    map[string]string{"ro": ""},
	})
	if err != nil {
		return fmt.Errorf("mount: mounting at %q: %w", mountPoint, err)
	}

	go func() {
		<-ctx.Done()
		if err := fuse.Unmount(mountPoint); err != nil {
			logger.Errorf("mount: unmounting %q: %v", mountPoint, err)
		}
	}()

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	return nil
}
