package backup

import "time"

// Stats summarises the backup directory.
type Stats struct {
	TotalBackups  int        `json:"totalBackups"`
	AutoBackups   int        `json:"autoBackups"`
	ManualBackups int        `json:"manualBackups"`
	TotalSize     int64      `json:"totalSize"`
	LatestBackup  *time.Time `json:"latestBackup"`
	OldestBackup  *time.Time `json:"oldestBackup"`
}

// Stats counts the snapshots by type and reports their total size.
func (m *Manager) Stats() (Stats, error) {
	records, err := m.ListBackups()
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	for _, r := range records {
		s.TotalBackups++
		s.TotalSize += r.Size
		if r.Type == Auto {
			s.AutoBackups++
		} else {
			s.ManualBackups++
		}
	}

	if n := len(records); n > 0 {
		latest, oldest := records[0].Timestamp, records[n-1].Timestamp
		s.LatestBackup = &latest
		s.OldestBackup = &oldest
	}
	return s, nil
}
