package handlers

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/thisdougb/sitedb/internal/backup"
	"github.com/thisdougb/sitedb/internal/config"
)

// BackupListResponse is returned by GET.
type BackupListResponse struct {
	Backups []backup.Record `json:"backups"`
	Stats   backup.Stats    `json:"stats"`
}

// BackupActionResponse is returned by a successful POST.
type BackupActionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Backup  *backup.Record `json:"backup,omitempty"`
}

// BackupsHandler lists backups on GET and runs create, restore or delete on
// POST, selected by the action query parameter.
func BackupsHandler(backups BackupInterface) http.HandlerFunc {
	return recoverWith("backup operation failed", func(w http.ResponseWriter, r *http.Request) {
		ctx := config.SetContextCorrelationId(r.Context(), "backups")

		switch r.Method {
		case http.MethodGet:
			list, err := backups.ListBackups()
			if err != nil {
				writeBackupError(w, r, err)
				return
			}
			stats, err := backups.Stats()
			if err != nil {
				writeBackupError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, BackupListResponse{Backups: list, Stats: stats})
			return

		case http.MethodPost:
		default:
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		filename := q.Get("filename")
		ctx = config.AppendToContextCorrelationId(ctx, q.Get("action"))

		switch q.Get("action") {
		case "create":
			kind := backup.Kind(q.Get("type"))
			if kind == "" {
				kind = backup.Manual
			}
			if kind != backup.Manual && kind != backup.Auto {
				writeError(w, http.StatusBadRequest, "invalid backup type")
				return
			}

			record, err := backups.CreateBackup(ctx, kind, q.Get("description"))
			if err != nil {
				writeBackupError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, BackupActionResponse{Success: true, Message: "backup created", Backup: &record})

		case "restore":
			if err := backups.RestoreBackup(ctx, filename); err != nil {
				writeBackupError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, BackupActionResponse{Success: true, Message: fmt.Sprintf("restored %s", filename)})

		case "delete":
			if err := backups.DeleteBackup(filename); err != nil {
				writeBackupError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, BackupActionResponse{Success: true, Message: fmt.Sprintf("deleted %s", filename)})

		default:
			writeError(w, http.StatusBadRequest, "unknown action")
		}
	})
}

// writeBackupError maps backup errors to a status and a fixed message; the
// detail only goes to the log.
func writeBackupError(w http.ResponseWriter, r *http.Request, err error) {
	config.LogError(r.Context(), fmt.Sprintf("backup request failed: %s", err))

	switch {
	case errors.Is(err, backup.ErrBackupNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
	case errors.Is(err, backup.ErrCorruptBackup):
		writeError(w, http.StatusBadRequest, "backup is corrupt")
	case errors.Is(err, backup.ErrInvalidBackupName):
		writeError(w, http.StatusBadRequest, "invalid backup filename")
	default:
		writeError(w, http.StatusInternalServerError, "backup operation failed")
	}
}
