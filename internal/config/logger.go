package config

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// InitLog configures the process logger. Unknown levels keep the current level.
func InitLog(level, format string) {
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if lvl, err := log.ParseLevel(level); err != nil {
		log.WithField("err", err).Warn("unrecognized log level")
	} else {
		log.SetLevel(lvl)
	}
}

// Entry returns a logrus entry carrying the request correlation id and the
// elapsed time since the context was created.
func Entry(ctx context.Context) *log.Entry {
	return log.WithContext(ctx).WithFields(log.Fields{
		"cid":     GetContextCorrelationId(ctx),
		"elapsed": sinceCreated(ctx),
	})
}

// Public methods
func LogInfo(ctx context.Context, msg string) {
	Entry(ctx).Info(msg)
}

func LogWarn(ctx context.Context, msg string) {
	Entry(ctx).Warn(msg)
}

func LogError(ctx context.Context, msg string) {
	Entry(ctx).Error(msg)
}

func LogDebug(ctx context.Context, msg string) {
	if GetContextDebug(ctx) {
		Entry(ctx).Info(msg)
		return
	}
	Entry(ctx).Debug(msg)
}

// collectHook copies entries into the context's log collection, if one is enabled.
type collectHook struct{}

func (collectHook) Levels() []log.Level { return log.AllLevels }

func (collectHook) Fire(e *log.Entry) error {
	if e.Context == nil {
		return nil
	}
	logs := collectedLogs(e.Context)
	if logs == nil {
		return nil
	}

	var elapsedMs float64
	if created := GetContextTimeCreated(e.Context); created != -1 {
		elapsedMs = time.Since(time.Unix(created, 0)).Seconds() * 1000
	}

	logs.add(CollectedLog{
		Timestamp: e.Time.UTC(),
		Severity:  e.Level.String(),
		Message:   e.Message,
		CID:       GetContextCorrelationId(e.Context),
		ElapsedMs: elapsedMs,
	})
	return nil
}

func sinceCreated(ctx context.Context) string {

	created := GetContextTimeCreated(ctx)
	if created == -1 {
		return "0.0s"
	}
	t := time.Since(time.Unix(created, 0)).Seconds()

	return fmt.Sprintf("%.1fs", t)
}
