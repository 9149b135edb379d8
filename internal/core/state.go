package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/thisdougb/sitedb/internal/backup"
	"github.com/thisdougb/sitedb/internal/cache"
	"github.com/thisdougb/sitedb/internal/config"
	"github.com/thisdougb/sitedb/internal/indexes"
	"github.com/thisdougb/sitedb/internal/metrics"
	"github.com/thisdougb/sitedb/internal/storage"
)

// InitialBackupDescription labels the snapshot taken by Initialize.
const InitialBackupDescription = "initial backup after database optimization"

// Options override the collaborators NewStateWithOptions would otherwise
// build from the real clock and filesystem.
type Options struct {
	Clock clockwork.Clock
	Fs    afero.Fs
}

// StateImpl owns the database and every component built around it.
type StateImpl struct {
	cfg     config.Config
	clock   clockwork.Clock
	store   *storage.SQLiteStore
	monitor *metrics.Monitor
	cache   *cache.Cache
	advisor *indexes.Advisor
	backups *backup.Manager

	maintCtx    context.Context
	maintCancel context.CancelFunc
	maintDone   chan struct{}
	closeOnce   sync.Once
	closeErr    error
}

// InitReport is the outcome of Initialize.
type InitReport struct {
	Pragmas     []indexes.Result          `json:"pragmas"`
	Indexes     []indexes.Result          `json:"indexes"`
	Backup      backup.Record             `json:"backup"`
	BackupStats backup.Stats              `json:"backupStats"`
	CacheStats  cache.Stats               `json:"cacheStats"`
	Metrics     metrics.ConnectionMetrics `json:"metrics"`
}

// NewState opens the database described by cfg and starts the background
// maintenance.
func NewState(cfg config.Config) (*StateImpl, error) {
	return NewStateWithOptions(cfg, Options{})
}

// NewStateWithOptions is NewState with an injected clock and filesystem.
func NewStateWithOptions(cfg config.Config, opts Options) (*StateImpl, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	var store *storage.SQLiteStore
	monitor := metrics.New(metrics.Options{
		SlowThreshold: cfg.SlowQueryThreshold,
		HistorySize:   cfg.HistorySize,
		Clock:         opts.Clock,
		Connections: func() int {
			if store == nil {
				return 0
			}
			return store.OpenConnections()
		},
	})

	store, err := storage.Open(storage.Options{DBPath: cfg.DBPath, Observer: monitor})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open site database")
	}

	backups, err := backup.New(store, backup.Options{
		Dir:            cfg.BackupDir,
		MaxAutoBackups: cfg.MaxAutoBackups,
		Clock:          opts.Clock,
		Fs:             opts.Fs,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	c := cache.New(cache.Options{DefaultTTL: cfg.CacheTTL, Clock: opts.Clock})
	c.StartSweeper(cfg.CacheSweepInterval)

	ctx, cancel := context.WithCancel(context.Background())

	s := &StateImpl{
		cfg:         cfg,
		clock:       opts.Clock,
		store:       store,
		monitor:     monitor,
		cache:       c,
		advisor:     indexes.NewAdvisor(store),
		backups:     backups,
		maintCtx:    ctx,
		maintCancel: cancel,
		maintDone:   make(chan struct{}),
	}

	s.startMaintenance()
	return s, nil
}

// Initialize tunes the database, applies the recommended indexes and takes
// the initial backup. Pragma and index failures are reported per item; a
// failed backup aborts the sequence.
func (s *StateImpl) Initialize(ctx context.Context) (InitReport, error) {
	var report InitReport

	config.LogInfo(ctx, "starting database optimization")
	report.Pragmas = s.advisor.OptimizeDatabase(ctx)
	report.Indexes = s.advisor.CreateAllIndexes(ctx)

	record, err := s.backups.CreateBackup(ctx, backup.Manual, InitialBackupDescription)
	if err != nil {
		config.LogError(ctx, fmt.Sprintf("initial backup failed: %s", err))
		return report, errors.WithMessage(err, "initialization aborted")
	}
	report.Backup = record

	if report.BackupStats, err = s.backups.Stats(); err != nil {
		config.LogWarn(ctx, fmt.Sprintf("failed to read backup stats: %s", err))
	}
	report.CacheStats = s.cache.Stats()
	report.Metrics = s.monitor.Metrics()

	config.LogInfo(ctx, fmt.Sprintf("backups: %d total, %d auto, %d manual",
		report.BackupStats.TotalBackups, report.BackupStats.AutoBackups, report.BackupStats.ManualBackups))
	config.LogInfo(ctx, fmt.Sprintf("cache: %d entries, hit rate %.1f%%", s.cache.Size(), report.CacheStats.HitRate))
	config.LogInfo(ctx, fmt.Sprintf("monitor: %d queries, %d slow, %d errors",
		report.Metrics.TotalQueries, report.Metrics.SlowQueries, report.Metrics.Errors))
	config.LogInfo(ctx, "database optimization complete")

	return report, nil
}

// RestoreBackup replaces the database with the named snapshot and drops
// every cached read, since none of it reflects the restored content.
func (s *StateImpl) RestoreBackup(ctx context.Context, filename string) error {
	if err := s.backups.RestoreBackup(ctx, filename); err != nil {
		return err
	}
	n := s.cache.Size()
	s.cache.Clear()
	config.LogInfo(ctx, fmt.Sprintf("dropped %d cached entries after restoring %s", n, filename))
	return nil
}

// ScheduleAutoBackups starts the configured automatic backups. A zero
// interval leaves them off.
func (s *StateImpl) ScheduleAutoBackups() {
	if s.cfg.AutoBackupInterval <= 0 {
		return
	}
	s.backups.ScheduleAutoBackup(s.cfg.AutoBackupInterval)
}

// startMaintenance prunes the monitor history on a fixed interval.
func (s *StateImpl) startMaintenance() {
	interval := s.cfg.MonitorCleanupEvery
	if interval <= 0 {
		interval = metrics.CleanupAge
	}
	ticker := s.clock.NewTicker(interval)

	go func() {
		defer close(s.maintDone)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				if n := s.monitor.Cleanup(); n > 0 {
					config.LogDebug(s.maintCtx, fmt.Sprintf("pruned %d query metrics", n))
				}
			case <-s.maintCtx.Done():
				return
			}
		}
	}()
}

func (s *StateImpl) Config() config.Config       { return s.cfg }
func (s *StateImpl) Store() *storage.SQLiteStore { return s.store }
func (s *StateImpl) Monitor() *metrics.Monitor   { return s.monitor }
func (s *StateImpl) Cache() *cache.Cache         { return s.cache }
func (s *StateImpl) Advisor() *indexes.Advisor   { return s.advisor }
func (s *StateImpl) Backups() *backup.Manager    { return s.backups }

// Close stops the background work and closes the database. It is safe to
// call more than once.
func (s *StateImpl) Close() error {
	s.closeOnce.Do(func() {
		s.maintCancel()
		<-s.maintDone

		s.backups.Close()
		s.cache.Close()
		s.closeErr = s.store.Close()
	})
	return s.closeErr
}
