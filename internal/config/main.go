package config

import (
	"os"
	"strconv"
	"time"
)

var defaultValues = map[string]interface{}{
	"SITEDB_DB_PATH":              "./data/site.db", // SQLite database file holding the site content
	"SITEDB_BACKUP_DIR":           "./backups",      // Directory for snapshot and sidecar files
	"SITEDB_MAX_AUTO_BACKUPS":     10,               // Automatic backups kept by retention
	"SITEDB_AUTO_BACKUP_INTERVAL": "24h",            // 0 disables scheduled backups
	"SITEDB_CACHE_TTL":            "5m",             // Default cache entry lifetime
	"SITEDB_CACHE_SWEEP_INTERVAL": "60s",            // How often expired cache entries are swept
	"SITEDB_SLOW_QUERY_MS":        100,              // Queries slower than this are flagged
	"SITEDB_HISTORY_SIZE":         1000,             // Query metrics retained by the monitor
	"SITEDB_MONITOR_CLEANUP":      "1h",             // How often monitor history is pruned
	"SITEDB_LISTEN":               ":8080",          // Admin HTTP listen address
	"SITEDB_LOG_LEVEL":            "info",
	"SITEDB_LOG_FORMAT":           "text",
	"SITEDB_DEBUG":                false, // Enable debug logging
}

// Config is the typed view of the SITEDB_* settings.
type Config struct {
	DBPath              string
	BackupDir           string
	MaxAutoBackups      int
	AutoBackupInterval  time.Duration
	CacheTTL            time.Duration
	CacheSweepInterval  time.Duration
	SlowQueryThreshold  time.Duration
	HistorySize         int
	MonitorCleanupEvery time.Duration
	Listen              string
	LogLevel            string
	LogFormat           string
	Debug               bool
}

// Load reads every setting from the environment, falling back to defaults.
func Load() Config {
	return Config{
		DBPath:              StringValue("SITEDB_DB_PATH"),
		BackupDir:           StringValue("SITEDB_BACKUP_DIR"),
		MaxAutoBackups:      IntValue("SITEDB_MAX_AUTO_BACKUPS"),
		AutoBackupInterval:  DurationValue("SITEDB_AUTO_BACKUP_INTERVAL"),
		CacheTTL:            DurationValue("SITEDB_CACHE_TTL"),
		CacheSweepInterval:  DurationValue("SITEDB_CACHE_SWEEP_INTERVAL"),
		SlowQueryThreshold:  time.Duration(IntValue("SITEDB_SLOW_QUERY_MS")) * time.Millisecond,
		HistorySize:         IntValue("SITEDB_HISTORY_SIZE"),
		MonitorCleanupEvery: DurationValue("SITEDB_MONITOR_CLEANUP"),
		Listen:              StringValue("SITEDB_LISTEN"),
		LogLevel:            StringValue("SITEDB_LOG_LEVEL"),
		LogFormat:           StringValue("SITEDB_LOG_FORMAT"),
		Debug:               BoolValue("SITEDB_DEBUG"),
	}
}

// Default returns the built-in defaults without consulting the environment.
func Default() Config {
	return Config{
		DBPath:              defaultValues["SITEDB_DB_PATH"].(string),
		BackupDir:           defaultValues["SITEDB_BACKUP_DIR"].(string),
		MaxAutoBackups:      defaultValues["SITEDB_MAX_AUTO_BACKUPS"].(int),
		AutoBackupInterval:  24 * time.Hour,
		CacheTTL:            5 * time.Minute,
		CacheSweepInterval:  time.Minute,
		SlowQueryThreshold:  100 * time.Millisecond,
		HistorySize:         defaultValues["SITEDB_HISTORY_SIZE"].(int),
		MonitorCleanupEvery: time.Hour,
		Listen:              defaultValues["SITEDB_LISTEN"].(string),
		LogLevel:            defaultValues["SITEDB_LOG_LEVEL"].(string),
		LogFormat:           defaultValues["SITEDB_LOG_FORMAT"].(string),
	}
}

func StringValue(key string) string {
	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(string)).(string)
	}
	return ""
}

// IntValue gets an int value from the env or default
func IntValue(key string) int {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(int)).(int)
	}
	return 0
}

// BoolValue gets a bool value from the env or default
func BoolValue(key string) bool {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(bool)).(bool)
	}
	return false
}

// DurationValue parses a duration string from the env or default. An
// unparseable env value falls back to the default.
func DurationValue(key string) time.Duration {
	defaultValue, ok := defaultValues[key]
	if !ok {
		return 0
	}
	fallback, err := time.ParseDuration(defaultValue.(string))
	if err != nil {
		return 0
	}
	return getEnvVar(key, fallback).(time.Duration)
}

func getEnvVar(key string, fallback interface{}) interface{} {

	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	switch fallback.(type) {
	case string:
		return value
	case bool:
		valueAsBool, err := strconv.ParseBool(value)
		if err != nil {
			return fallback
		}
		return valueAsBool
	case int:
		valueAsInt, err := strconv.Atoi(value)
		if err != nil {
			return fallback
		}
		return valueAsInt
	case time.Duration:
		valueAsDuration, err := time.ParseDuration(value)
		if err != nil {
			return fallback
		}
		return valueAsDuration
	}
	return fallback
}
