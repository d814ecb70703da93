package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/desertwitch/govfs"
	"github.com/desertwitch/govfs/fuse"
	"github.com/dustin/go-humanize"
)

const (
	createPerms = os.FileMode(0o644)
	dirPerms    = os.FileMode(0o755)
)

// List prints the entries of a directory, one per line with mode, size and
// modification time.
func (app *App) List(_ context.Context) error {
	ids, err := app.identifierArgs(1)
	if err != nil {
		return err
	}

	dir, err := app.vfs.OpenDir(ids[0], govfs.Loud())
	if err != nil {
		return fmt.Errorf("failed to open dir: %w", err)
	}
	defer dir.Close()

	for {
		entry, err := dir.ReadEntry()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read entry: %w", err)
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stdout, "%s\n", entry.Name())

			continue
		}

		fmt.Fprintf(os.Stdout, "%s %10s %s %s\n",
			info.Mode(),
			humanize.Bytes(uint64(info.Size())),
			info.ModTime().Format(time.DateTime),
			entry.Name(),
		)
	}

	return nil
}

// Stat prints the metadata of a resource, including the native path it
// currently resolves to.
func (app *App) Stat(_ context.Context) error {
	ids, err := app.identifierArgs(1)
	if err != nil {
		return err
	}

	md, err := app.vfs.Stat(ids[0], govfs.Loud())
	if err != nil {
		return fmt.Errorf("failed to stat: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Resource:  %s\n", ids[0].String())

	if path, ok := app.table.Resolve(ids[0]); ok {
		fmt.Fprintf(os.Stdout, "Native:    %s\n", path)
	}

	switch {
	case md.IsDir:
		fmt.Fprintf(os.Stdout, "Type:      directory\n")
	case md.IsSymlink:
		fmt.Fprintf(os.Stdout, "Type:      symlink -> %s\n", md.SymlinkTo)
	default:
		fmt.Fprintf(os.Stdout, "Type:      file\n")
	}

	fmt.Fprintf(os.Stdout, "Inode:     %d\n", md.Inode)
	fmt.Fprintf(os.Stdout, "Size:      %d (%s)\n", md.Size, humanize.Bytes(md.Size))
	fmt.Fprintf(os.Stdout, "Perms:     %04o\n", md.Perms)
	fmt.Fprintf(os.Stdout, "Owner:     %d:%d\n", md.UID, md.GID)
	fmt.Fprintf(os.Stdout, "Accessed:  %s\n", time.Unix(md.AccessedAt.Unix()).Format(time.DateTime))
	fmt.Fprintf(os.Stdout, "Modified:  %s\n", time.Unix(md.ModifiedAt.Unix()).Format(time.DateTime))

	return nil
}

// Cat copies the contents of a file to standard output.
func (app *App) Cat(_ context.Context) error {
	ids, err := app.identifierArgs(1)
	if err != nil {
		return err
	}

	f, err := app.vfs.Open(ids[0], govfs.Loud())
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(os.Stdout, f); err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}

	return nil
}

// Touch updates the timestamps of an existing resource, or creates an empty
// file where none exists yet.
func (app *App) Touch(_ context.Context) error {
	ids, err := app.identifierArgs(1)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := app.vfs.Touch(ids[0], now, now); err == nil {
		return nil
	}

	f, err := app.vfs.Create(ids[0], createPerms, govfs.Loud())
	if err != nil {
		return fmt.Errorf("failed to create: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close: %w", err)
	}

	return nil
}

// Mkdir creates a directory, including any missing parents.
func (app *App) Mkdir(_ context.Context) error {
	ids, err := app.identifierArgs(1)
	if err != nil {
		return err
	}

	if err := app.vfs.MkdirAll(ids[0], dirPerms, govfs.Loud()); err != nil {
		return fmt.Errorf("failed to make dir: %w", err)
	}

	return nil
}

// Rmdir removes an empty directory.
func (app *App) Rmdir(_ context.Context) error {
	ids, err := app.identifierArgs(1)
	if err != nil {
		return err
	}

	if err := app.vfs.Rmdir(ids[0], govfs.Loud()); err != nil {
		return fmt.Errorf("failed to remove dir: %w", err)
	}

	return nil
}

// Remove removes a file or symlink.
func (app *App) Remove(_ context.Context) error {
	ids, err := app.identifierArgs(1)
	if err != nil {
		return err
	}

	if err := app.vfs.Remove(ids[0], govfs.Loud()); err != nil {
		return fmt.Errorf("failed to remove: %w", err)
	}

	return nil
}

// Copy transfers a file or directory tree between two identifiers, leaving
// the source in place.
func (app *App) Copy(ctx context.Context) error {
	ids, err := app.identifierArgs(2) //nolint:mnd
	if err != nil {
		return err
	}

	return app.transferAll(ctx, ids[0], ids[1], false)
}

// Move transfers a file or directory tree between two identifiers and
// removes the source. A move within the same native filesystem degrades to a
// plain rename, everything else runs through the verified transfer engine.
func (app *App) Move(ctx context.Context) error {
	ids, err := app.identifierArgs(2) //nolint:mnd
	if err != nil {
		return err
	}

	if err := app.vfs.Rename(ids[0], ids[1]); err == nil {
		slog.Info("Renamed in place:", "source", ids[0].String(), "dest", ids[1].String())

		return nil
	}

	return app.transferAll(ctx, ids[0], ids[1], true)
}

func (app *App) transferAll(ctx context.Context, src, dest govfs.Identifier, move bool) error {
	requests, dirs, err := app.transfers.Enumerate(ctx, src, dest, move)
	if err != nil {
		return fmt.Errorf("failed to enumerate: %w", err)
	}

	if len(requests) == 0 {
		slog.Info("Nothing to transfer.")

		return nil
	}

	if err := app.transfers.ProcessAll(ctx, app.workers, requests...); err != nil {
		return fmt.Errorf("failed to process: %w", err)
	}

	if move {
		if err := app.transfers.CleanupDirs(ctx, dirs...); err != nil {
			return fmt.Errorf("failed to clean up: %w", err)
		}
	}

	if skipped := app.transfers.Queue.GetSkipped(); len(skipped) > 0 {
		return fmt.Errorf("%w: %d of %d items skipped", ErrPartialTransfer, len(skipped), len(requests))
	}

	slog.Info("Transfer complete:", "items", len(requests))

	return nil
}

// Mount exposes a scheme as a kernel-visible filesystem and serves it until
// the context is canceled.
func (app *App) Mount(ctx context.Context) error {
	if len(app.args) != 2 { //nolint:mnd
		return fmt.Errorf("%w: %q expects a scheme and a mountpoint", ErrUsage, app.command)
	}

	scheme := strings.TrimSuffix(app.args[0], "://")
	if !app.table.IsKnownScheme(govfs.NewIdentifier(scheme, "")) {
		return fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}

	server, err := fuse.Mount(fuse.Options{
		Mountpoint: app.args[1],
		VFS:        app.vfs,
		Scheme:     scheme,
		AllowOther: app.allowOther,
		Logger:     slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}

	slog.Info("Serving mounted filesystem:", "scheme", scheme, "mountpoint", app.args[1])

	<-ctx.Done()

	if err := server.Unmount(); err != nil {
		return fmt.Errorf("failed to unmount: %w", err)
	}

	server.Wait()

	return nil
}
