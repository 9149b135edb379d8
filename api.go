package sitedb

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/thisdougb/sitedb/internal/cache"
	"github.com/thisdougb/sitedb/internal/config"
	"github.com/thisdougb/sitedb/internal/core"
	"github.com/thisdougb/sitedb/internal/storage"
)

type (
	Config       = config.Config
	InitReport   = core.InitReport
	SiteSettings = storage.SiteSettings
	GameFeature  = storage.GameFeature
	JobClass     = storage.JobClass
)

// ErrNotFound is returned by reads of content that does not exist.
var ErrNotFound = storage.ErrNotFound

const (
	settingsKey   = "site:settings"
	featuresKey   = "site:features"
	jobClassesKey = "site:jobclasses:"
)

// Site is the public handle on the site database and its tooling.
type Site struct {
	impl     *core.StateImpl
	registry *prometheus.Registry

	settings   func(context.Context, struct{}) (SiteSettings, error)
	features   func(context.Context, struct{}) ([]GameFeature, error)
	jobClasses func(context.Context, string) ([]JobClass, error)
}

// New opens the site database configured through the SITEDB_* environment.
func New() (*Site, error) {
	return NewWithConfig(config.Load())
}

// NewWithConfig opens the site database described by cfg.
func NewWithConfig(cfg Config) (*Site, error) {
	impl, err := core.NewState(cfg)
	if err != nil {
		return nil, err
	}
	return newSite(impl), nil
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return config.Default()
}

func newSite(impl *core.StateImpl) *Site {
	s := &Site{impl: impl, registry: prometheus.NewRegistry()}
	s.registry.MustRegister(
		impl.Monitor(),
		impl.Cache(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, c := impl.Store(), impl.Cache()

	s.settings = cache.Memoize(c, func(ctx context.Context, _ struct{}) (SiteSettings, error) {
		return store.SiteSettings(ctx)
	}, func(struct{}) string { return settingsKey }, 0)

	// every public page renders the feature list
	s.features = cache.MemoizeShared(c, func(ctx context.Context, _ struct{}) ([]GameFeature, error) {
		return store.ActiveGameFeatures(ctx)
	}, func(struct{}) string { return featuresKey }, 0)

	s.jobClasses = cache.Memoize(c, store.ActiveJobClasses,
		func(category string) string { return jobClassesKey + category }, 0)

	return s
}

// Initialize tunes the database, applies the recommended indexes and takes
// the initial backup.
func (s *Site) Initialize(ctx context.Context) (InitReport, error) {
	return s.impl.Initialize(ctx)
}

// ScheduleAutoBackups starts the configured automatic backups.
func (s *Site) ScheduleAutoBackups() {
	s.impl.ScheduleAutoBackups()
}

// SiteSettings returns the landing page settings, cached.
func (s *Site) SiteSettings(ctx context.Context) (SiteSettings, error) {
	return s.settings(ctx, struct{}{})
}

// SaveSiteSettings stores the settings and drops the cached copy.
func (s *Site) SaveSiteSettings(ctx context.Context, st SiteSettings) error {
	if err := s.impl.Store().SaveSiteSettings(ctx, st); err != nil {
		return err
	}
	s.impl.Cache().Delete(settingsKey)
	return nil
}

// ActiveGameFeatures returns the ordered active features, cached.
func (s *Site) ActiveGameFeatures(ctx context.Context) ([]GameFeature, error) {
	return s.features(ctx, struct{}{})
}

// AddGameFeature stores a feature and drops the cached list.
func (s *Site) AddGameFeature(ctx context.Context, f GameFeature) error {
	if err := s.impl.Store().AddGameFeature(ctx, f); err != nil {
		return err
	}
	s.impl.Cache().Delete(featuresKey)
	return nil
}

// ActiveJobClasses returns the active classes of category, or of every
// category when it is empty, cached per category.
func (s *Site) ActiveJobClasses(ctx context.Context, category string) ([]JobClass, error) {
	return s.jobClasses(ctx, category)
}

// AddJobClass stores a job class and drops the cached lists it appears in.
func (s *Site) AddJobClass(ctx context.Context, j JobClass) error {
	if err := s.impl.Store().AddJobClass(ctx, j); err != nil {
		return err
	}
	s.impl.Cache().Delete(jobClassesKey + j.Category)
	s.impl.Cache().Delete(jobClassesKey)
	return nil
}

// RestoreBackup replaces the database with the named snapshot and drops
// the cached content.
func (s *Site) RestoreBackup(ctx context.Context, filename string) error {
	return s.impl.RestoreBackup(ctx, filename)
}

// State exposes the underlying components for tooling such as the CLI.
func (s *Site) State() *core.StateImpl {
	return s.impl
}

// Close stops background work and closes the database.
func (s *Site) Close() error {
	return s.impl.Close()
}
