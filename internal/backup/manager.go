// Package backup snapshots, lists, restores and retires copies of the site
// database file. Each snapshot has a JSON sidecar describing it.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/thisdougb/sitedb/internal/config"
	"github.com/thisdougb/sitedb/internal/storage"
)

const (
	DefaultMaxAutoBackups = 10

	filePrefix    = "backup_"
	fileExt       = ".db"
	sidecarSuffix = ".meta.json"
)

var (
	ErrBackupNotFound    = errors.New("backup not found")
	ErrCorruptBackup     = errors.New("backup is not a valid SQLite database")
	ErrInvalidBackupName = errors.New("invalid backup filename")
)

// Kind distinguishes scheduled snapshots, which are retired, from manual
// ones, which are kept until deleted.
type Kind string

const (
	Auto   Kind = "auto"
	Manual Kind = "manual"
)

// Record describes one snapshot. It is persisted as the snapshot's sidecar.
type Record struct {
	Filename    string    `json:"filename"`
	Timestamp   time.Time `json:"timestamp"`
	Size        int64     `json:"size"`
	Type        Kind      `json:"type"`
	Description string    `json:"description,omitempty"`
}

// Options configure a Manager. Zero values select the defaults.
type Options struct {
	Dir            string
	MaxAutoBackups int
	Clock          clockwork.Clock
	Fs             afero.Fs
}

// Manager owns the backup directory for one store.
type Manager struct {
	store   storage.Lifecycle
	fs      afero.Fs
	dir     string
	maxAuto int
	clock   clockwork.Clock

	mu sync.Mutex // serializes create and restore

	schedMu     sync.Mutex
	schedCancel context.CancelFunc
	schedDone   chan struct{}
}

// New creates the backup directory if needed.
func New(store storage.Lifecycle, opts Options) (*Manager, error) {
	if opts.Dir == "" {
		return nil, errors.New("backup directory is required")
	}
	if opts.MaxAutoBackups <= 0 {
		opts.MaxAutoBackups = DefaultMaxAutoBackups
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if err := opts.Fs.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create backup directory")
	}

	return &Manager{
		store:   store,
		fs:      opts.Fs,
		dir:     opts.Dir,
		maxAuto: opts.MaxAutoBackups,
		clock:   opts.Clock,
	}, nil
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// CreateBackup snapshots the database file and retires old auto backups.
func (m *Manager) CreateBackup(ctx context.Context, kind Kind, description string) (Record, error) {
	if kind != Auto && kind != Manual {
		return Record{}, errors.Errorf("unknown backup type %q", kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.create(ctx, kind, description, "")
}

// create must be called with mu held. The protected filename is exempt from
// this round of retention.
func (m *Manager) create(ctx context.Context, kind Kind, description, protected string) (Record, error) {
	if err := m.store.Checkpoint(ctx); err != nil {
		config.LogWarn(ctx, fmt.Sprintf("checkpoint before backup failed: %s", err))
	}

	now := m.clock.Now().UTC()
	name, err := m.uniqueName(kind, now)
	if err != nil {
		return Record{}, err
	}
	path := filepath.Join(m.dir, name)

	size, err := copyFile(m.fs, m.store.Path(), path)
	if err != nil {
		return Record{}, errors.Wrapf(err, "failed to copy database to %s", name)
	}

	record := Record{
		Filename:    name,
		Timestamp:   now,
		Size:        size,
		Type:        kind,
		Description: description,
	}
	if err := m.writeSidecar(record); err != nil {
		m.fs.Remove(path)
		return Record{}, err
	}

	config.LogInfo(ctx, fmt.Sprintf("created %s backup %s (%d bytes)", kind, name, size))

	if err := m.retire(ctx, protected); err != nil {
		config.LogWarn(ctx, fmt.Sprintf("backup retention failed: %s", err))
	}
	return record, nil
}

func fileName(kind Kind, ts time.Time) string {
	stamp := ts.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return filePrefix + string(kind) + "_" + stamp + fileExt
}

// uniqueName appends _N, one past the highest suffix in use, when a
// snapshot with the same timestamp exists.
func (m *Manager) uniqueName(kind Kind, ts time.Time) (string, error) {
	base := strings.TrimSuffix(fileName(kind, ts), fileExt)

	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		return "", errors.Wrap(err, "failed to check backup name")
	}

	highest := -1
	for _, fi := range entries {
		if !strings.HasSuffix(fi.Name(), fileExt) {
			continue
		}
		if b, n := splitCollision(fi.Name()); b == base && n > highest {
			highest = n
		}
	}

	if highest < 0 {
		return base + fileExt, nil
	}
	return fmt.Sprintf("%s_%d%s", base, highest+1, fileExt), nil
}

func (m *Manager) writeSidecar(r Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode backup metadata")
	}
	err = afero.WriteFile(m.fs, filepath.Join(m.dir, r.Filename+sidecarSuffix), data, 0644)
	return errors.Wrap(err, "failed to write backup metadata")
}

// ListBackups returns all snapshots, newest first. A snapshot whose sidecar
// is missing or unreadable is described from the file itself.
func (m *Manager) ListBackups() ([]Record, error) {
	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, errors.Wrap(err, "failed to read backup directory")
	}

	records := []Record{}
	for _, fi := range entries {
		name := fi.Name()
		if fi.IsDir() || !isSnapshotName(name) {
			continue
		}
		records = append(records, m.describe(fi))
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return newerName(records[i].Filename, records[j].Filename)
	})
	return records, nil
}

func (m *Manager) describe(fi os.FileInfo) Record {
	synthesized := Record{
		Filename:  fi.Name(),
		Timestamp: fi.ModTime().UTC(),
		Size:      fi.Size(),
		Type:      Manual,
	}

	data, err := afero.ReadFile(m.fs, filepath.Join(m.dir, fi.Name()+sidecarSuffix))
	if err != nil {
		return synthesized
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil || (r.Type != Auto && r.Type != Manual) {
		return synthesized
	}
	r.Filename = fi.Name()
	return r
}

// DeleteBackup removes a snapshot and its sidecar. Deleting a backup that
// does not exist is not an error.
func (m *Manager) DeleteBackup(filename string) error {
	if err := validateName(filename); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.remove(filename)
}

// remove must be called with mu held.
func (m *Manager) remove(filename string) error {
	path := filepath.Join(m.dir, filename)
	for _, p := range []string{path, path + sidecarSuffix} {
		if err := m.fs.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to delete %s", filepath.Base(p))
		}
	}
	return nil
}

// retire must be called with mu held. It keeps the newest maxAuto auto backups. Manual backups are never
// retired.
func (m *Manager) retire(ctx context.Context, protected string) error {
	records, err := m.ListBackups()
	if err != nil {
		return err
	}

	var kept int
	for _, r := range records {
		if r.Type != Auto {
			continue
		}
		kept++
		if kept <= m.maxAuto || r.Filename == protected {
			continue
		}
		if err := m.remove(r.Filename); err != nil {
			return err
		}
		config.LogInfo(ctx, fmt.Sprintf("retired auto backup %s", r.Filename))
	}
	return nil
}

// newerName orders snapshots taken in the same millisecond by their
// collision suffix, so _10 follows _9.
func newerName(a, b string) bool {
	baseA, nA := splitCollision(a)
	baseB, nB := splitCollision(b)
	if baseA != baseB {
		return baseA > baseB
	}
	return nA > nB
}

// splitCollision separates the _N suffix added by uniqueName.
func splitCollision(name string) (string, int) {
	base := strings.TrimSuffix(name, fileExt)
	if i := strings.LastIndex(base, "_"); i >= 0 {
		if n, err := strconv.Atoi(base[i+1:]); err == nil && n > 0 {
			return base[:i], n
		}
	}
	return base, 0
}

func isSnapshotName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt)
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || !isSnapshotName(name) {
		return errors.Wrapf(ErrInvalidBackupName, "%q", name)
	}
	return nil
}
