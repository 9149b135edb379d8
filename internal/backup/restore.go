package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/thisdougb/sitedb/internal/config"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// RestoreBackup replaces the live database with a snapshot. The snapshot is
// validated before the store is touched, and the current state is saved as
// an auto backup first. The store is reconnected on every path once it has
// been disconnected.
func (m *Manager) RestoreBackup(ctx context.Context, filename string) (err error) {
	if err := validateName(filename); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src := filepath.Join(m.dir, filename)
	if err := m.validate(src); err != nil {
		return err
	}

	safety, err := m.create(ctx, Auto, "safety backup before restoring "+filename, filename)
	if err != nil {
		return errors.WithMessage(err, "safety backup failed, restore aborted")
	}
	config.LogInfo(ctx, fmt.Sprintf("saved current database as %s", safety.Filename))

	if err := m.store.Disconnect(); err != nil {
		if cerr := m.store.Connect(); cerr != nil {
			config.LogError(ctx, fmt.Sprintf("reconnect after failed disconnect: %s", cerr))
		}
		return errors.Wrap(err, "failed to disconnect store")
	}
	defer func() {
		if cerr := m.store.Connect(); cerr != nil {
			config.LogError(ctx, fmt.Sprintf("failed to reconnect after restore: %s", cerr))
			if err == nil {
				err = errors.Wrap(cerr, "failed to reconnect after restore")
			}
		}
	}()

	primary := m.store.Path()
	tmp := primary + ".restore-tmp"
	defer m.fs.Remove(tmp)

	if _, err := copyFile(m.fs, src, tmp); err != nil {
		return errors.Wrap(err, "failed to stage restore")
	}

	// WAL content belongs to the replaced database
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := m.fs.Remove(primary + suffix); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to remove %s", filepath.Base(primary+suffix))
		}
	}

	if err := m.fs.Rename(tmp, primary); err != nil {
		return errors.Wrap(err, "failed to replace database file")
	}

	config.LogInfo(ctx, fmt.Sprintf("restored database from %s", filename))
	return nil
}

// validate checks the snapshot exists and starts with the SQLite header.
func (m *Manager) validate(path string) error {
	f, err := m.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrBackupNotFound, "%s", filepath.Base(path))
		}
		return errors.Wrap(err, "failed to open backup")
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, header); err != nil {
		return errors.Wrapf(ErrCorruptBackup, "%s: short file", filepath.Base(path))
	}
	if !bytes.Equal(header, sqliteHeader) {
		return errors.Wrapf(ErrCorruptBackup, "%s: bad header", filepath.Base(path))
	}
	return nil
}

// copyFile copies src to dst and returns the bytes written. A failed copy
// leaves no dst behind.
func copyFile(fs afero.Fs, src, dst string) (n int64, err error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			fs.Remove(dst)
		}
	}()

	if n, err = io.Copy(out, in); err != nil {
		return n, err
	}
	return n, out.Sync()
}
