package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/thisdougb/sitedb/internal/config"
)

// ScheduleAutoBackup creates an auto backup every interval until Close,
// replacing any previous schedule. Failures are logged and the schedule
// keeps running. A non-positive interval only cancels the current schedule.
func (m *Manager) ScheduleAutoBackup(interval time.Duration) {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()

	m.stopScheduleLocked()
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := m.clock.NewTicker(interval)

	m.schedCancel = cancel
	m.schedDone = done

	config.LogInfo(ctx, fmt.Sprintf("automatic backups every %s", interval))

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if _, err := m.CreateBackup(ctx, Auto, "scheduled automatic backup"); err != nil {
					config.LogError(ctx, fmt.Sprintf("scheduled backup failed: %s", err))
				}
			}
		}
	}()
}

// Close stops the automatic backup schedule.
func (m *Manager) Close() {
	m.schedMu.Lock()
	defer m.schedMu.Unlock()

	m.stopScheduleLocked()
}

func (m *Manager) stopScheduleLocked() {
	if m.schedCancel == nil {
		return
	}
	m.schedCancel()
	<-m.schedDone
	m.schedCancel = nil
	m.schedDone = nil
}
