package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdougb/sitedb/internal/backup"
)

// MockBackups implements BackupInterface for testing
type MockBackups struct {
	records []backup.Record
	err     error

	created  []backup.Kind
	restored string
	deleted  string
}

func (b *MockBackups) ListBackups() ([]backup.Record, error) { return b.records, b.err }

func (b *MockBackups) Stats() (backup.Stats, error) {
	return backup.Stats{TotalBackups: len(b.records), ManualBackups: len(b.records)}, b.err
}

func (b *MockBackups) CreateBackup(_ context.Context, kind backup.Kind, description string) (backup.Record, error) {
	if b.err != nil {
		return backup.Record{}, b.err
	}
	b.created = append(b.created, kind)
	return backup.Record{Filename: "backup_" + string(kind) + "_x.db", Type: kind, Description: description}, nil
}

func (b *MockBackups) RestoreBackup(_ context.Context, filename string) error {
	b.restored = filename
	return b.err
}

func (b *MockBackups) DeleteBackup(filename string) error {
	b.deleted = filename
	return b.err
}

func TestBackupsList(t *testing.T) {
	mock := &MockBackups{records: []backup.Record{{Filename: "backup_manual_a.db", Type: backup.Manual, Timestamp: time.Now()}}}

	rec := serve(BackupsHandler(mock), http.MethodGet, "/admin/backups")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BackupListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Backups, 1)
	assert.Equal(t, "backup_manual_a.db", resp.Backups[0].Filename)
	assert.Equal(t, 1, resp.Stats.TotalBackups)
}

func TestBackupsActions(t *testing.T) {
	mock := &MockBackups{}
	h := BackupsHandler(mock)

	rec := serve(h, http.MethodPost, "/admin/backups?action=create&description=before+launch")
	require.Equal(t, http.StatusOK, rec.Code)
	var created BackupActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Backup)
	assert.Equal(t, "before launch", created.Backup.Description)
	assert.Equal(t, []backup.Kind{backup.Manual}, mock.created)

	rec = serve(h, http.MethodPost, "/admin/backups?action=create&type=weekly")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPost, "/admin/backups?action=restore&filename=backup_manual_a.db")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "backup_manual_a.db", mock.restored)

	rec = serve(h, http.MethodPost, "/admin/backups?action=delete&filename=backup_manual_a.db")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "backup_manual_a.db", mock.deleted)

	rec = serve(h, http.MethodPost, "/admin/backups?action=explode")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodDelete, "/admin/backups")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBackupsErrorMapping(t *testing.T) {

	var TestCases = []struct {
		description string
		err         error
		status      int
		message     string
	}{
		{"not found", errors.Wrap(backup.ErrBackupNotFound, "backup_manual_a.db"), http.StatusNotFound, "backup not found"},
		{"corrupt", errors.Wrap(backup.ErrCorruptBackup, "bad header"), http.StatusBadRequest, "backup is corrupt"},
		{"invalid name", backup.ErrInvalidBackupName, http.StatusBadRequest, "invalid backup filename"},
		{"io failure", errors.New("read-only file system"), http.StatusInternalServerError, "backup operation failed"},
	}

	for _, tc := range TestCases {
		rec := serve(BackupsHandler(&MockBackups{err: tc.err}), http.MethodPost, "/admin/backups?action=restore&filename=x")
		assert.Equal(t, tc.status, rec.Code, tc.description)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), tc.description)
		assert.Equal(t, tc.message, resp.Error, tc.description)
	}
}
