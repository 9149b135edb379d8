package sitedb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdougb/sitedb/internal/backup"
)

func newTestSite(t *testing.T) *Site {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "data", "site.db")
	cfg.BackupDir = filepath.Join(dir, "backups")

	site, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { site.Close() })
	return site
}

func TestCachedReads(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	monitor := site.State().Monitor()

	_, err := site.SiteSettings(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, site.SaveSiteSettings(ctx, SiteSettings{SiteTitle: "Eternal Realm", HeroTitle: "Adventure awaits"}))
	require.NoError(t, site.AddGameFeature(ctx, GameFeature{ID: "f1", Text: "Custom classes", Order: 1, IsActive: true}))

	settings, err := site.SiteSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Eternal Realm", settings.SiteTitle)

	features, err := site.ActiveGameFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 1)

	// repeat reads are served from the cache
	before := monitor.Metrics().TotalQueries
	for i := 0; i < 5; i++ {
		_, err = site.SiteSettings(ctx)
		require.NoError(t, err)
		_, err = site.ActiveGameFeatures(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, before, monitor.Metrics().TotalQueries)
	assert.Equal(t, uint64(10), site.State().Cache().Stats().Hits)

	// writes invalidate
	require.NoError(t, site.AddGameFeature(ctx, GameFeature{ID: "f2", Text: "Weekly sieges", Order: 2, IsActive: true}))
	features, err = site.ActiveGameFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, features, 2)

	require.NoError(t, site.SaveSiteSettings(ctx, SiteSettings{SiteTitle: "Eternal Realm II"}))
	settings, err = site.SiteSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Eternal Realm II", settings.SiteTitle)
}

func TestJobClassInvalidation(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	require.NoError(t, site.AddJobClass(ctx, JobClass{ID: "j1", Name: "Knight", Category: "warrior", IsActive: true}))

	all, err := site.ActiveJobClasses(ctx, "")
	require.NoError(t, err)
	warriors, err := site.ActiveJobClasses(ctx, "warrior")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, warriors, 1)

	require.NoError(t, site.AddJobClass(ctx, JobClass{ID: "j2", Name: "Berserker", Category: "warrior", Order: 1, IsActive: true}))

	all, err = site.ActiveJobClasses(ctx, "")
	require.NoError(t, err)
	warriors, err = site.ActiveJobClasses(ctx, "warrior")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, warriors, 2)
}

func TestRoutes(t *testing.T) {
	site := newTestSite(t)
	_, err := site.Initialize(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(site.Routes())
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/admin/db-monitor?action=metrics")
	require.Equal(t, http.StatusOK, status)
	var metricsResp struct {
		Metrics struct {
			TotalQueries int64 `json:"totalQueries"`
		} `json:"metrics"`
		QueryHistory []json.RawMessage `json:"queryHistory"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &metricsResp))
	assert.Positive(t, metricsResp.Metrics.TotalQueries)
	assert.Len(t, metricsResp.QueryHistory, 20)

	status, body = get("/admin/backups")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "initial backup after database optimization")

	status, body = get("/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "sitedb_queries_total")
	assert.Contains(t, body, "sitedb_cache_hits_total")

	resp, err := http.Post(srv.URL+"/admin/backups?action=restore&filename=backup_manual_missing.db", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestoreDropsCachedContent(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()

	empty, err := site.State().Backups().CreateBackup(ctx, backup.Manual, "no features yet")
	require.NoError(t, err)

	require.NoError(t, site.AddGameFeature(ctx, GameFeature{ID: "f1", Text: "Custom classes", Order: 1, IsActive: true}))
	features, err := site.ActiveGameFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 1)

	require.NoError(t, site.RestoreBackup(ctx, empty.Filename))

	features, err = site.ActiveGameFeatures(ctx)
	require.NoError(t, err)
	assert.Empty(t, features)

	// the same through the admin endpoint
	require.NoError(t, site.AddGameFeature(ctx, GameFeature{ID: "f2", Text: "Weekly events", Order: 2, IsActive: true}))
	features, err = site.ActiveGameFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 1)

	srv := httptest.NewServer(site.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/admin/backups?action=restore&filename="+empty.Filename, "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	features, err = site.ActiveGameFeatures(ctx)
	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestConcurrentUse(t *testing.T) {
	site := newTestSite(t)
	ctx := context.Background()
	h := site.Routes()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if i%5 == 0 {
					assert.NoError(t, site.AddGameFeature(ctx, GameFeature{
						ID: strings.Repeat("f", w+1), Text: "feature", Order: i, IsActive: true,
					}))
				}
				_, err := site.ActiveGameFeatures(ctx)
				assert.NoError(t, err)

				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/db-monitor?action=metrics", nil))
				assert.Equal(t, http.StatusOK, rec.Code)
			}
		}(w)
	}
	wg.Wait()

	// a read racing a write may have re-cached an older list
	site.State().Cache().Clear()
	features, err := site.ActiveGameFeatures(ctx)
	require.NoError(t, err)
	assert.Len(t, features, 4)
}
