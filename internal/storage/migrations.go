package storage

import (
	"database/sql"
	"fmt"
)

// SQLiteMigration represents a database schema migration for SQLite
type SQLiteMigration struct {
	Version int
	Up      string
	Down    string // Optional rollback SQL
}

// sqliteMigrations contains all SQLite database migrations in chronological order
var sqliteMigrations = []SQLiteMigration{
	{
		Version: 1,
		Up: `CREATE TABLE "User" (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'admin',
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE "SiteSettings" (
			id TEXT PRIMARY KEY,
			siteTitle TEXT NOT NULL DEFAULT '',
			siteLogo TEXT NOT NULL DEFAULT '',
			heroTitle TEXT NOT NULL DEFAULT '',
			heroSubtitle TEXT NOT NULL DEFAULT '',
			heroLogo TEXT NOT NULL DEFAULT '',
			downloadButtonText TEXT NOT NULL DEFAULT '',
			downloadButtonUrl TEXT NOT NULL DEFAULT '',
			footerText TEXT NOT NULL DEFAULT '',
			backgroundImage TEXT NOT NULL DEFAULT '',
			updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE "NavigationItem" (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			href TEXT NOT NULL,
			"order" INTEGER NOT NULL DEFAULT 0,
			parentId TEXT REFERENCES "NavigationItem"(id) ON DELETE CASCADE,
			isActive BOOLEAN NOT NULL DEFAULT 1
		);`,
		Down: `DROP TABLE IF EXISTS "NavigationItem";
		DROP TABLE IF EXISTS "SiteSettings";
		DROP TABLE IF EXISTS "User";`,
	},
	{
		Version: 2,
		Up: `CREATE TABLE "GameFeature" (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			"order" INTEGER NOT NULL DEFAULT 0,
			isActive BOOLEAN NOT NULL DEFAULT 1,
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE "GameScreenshot" (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			imageUrl TEXT NOT NULL,
			"order" INTEGER NOT NULL DEFAULT 0,
			isActive BOOLEAN NOT NULL DEFAULT 1
		);

		CREATE TABLE "JobCategory" (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			"order" INTEGER NOT NULL DEFAULT 0,
			isActive BOOLEAN NOT NULL DEFAULT 1
		);

		CREATE TABLE "JobClass" (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			imageUrl TEXT NOT NULL DEFAULT '',
			"order" INTEGER NOT NULL DEFAULT 0,
			isActive BOOLEAN NOT NULL DEFAULT 1
		);

		CREATE TABLE "TeamCategory" (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			"order" INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE "TeamInstance" (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			level INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			imageUrl TEXT NOT NULL DEFAULT '',
			"order" INTEGER NOT NULL DEFAULT 0,
			isActive BOOLEAN NOT NULL DEFAULT 1
		);

		CREATE TABLE "HistoricalMoment" (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			imageUrl TEXT NOT NULL DEFAULT '',
			"order" INTEGER NOT NULL DEFAULT 0,
			isActive BOOLEAN NOT NULL DEFAULT 1
		);`,
		Down: `DROP TABLE IF EXISTS "HistoricalMoment";
		DROP TABLE IF EXISTS "TeamInstance";
		DROP TABLE IF EXISTS "TeamCategory";
		DROP TABLE IF EXISTS "JobClass";
		DROP TABLE IF EXISTS "JobCategory";
		DROP TABLE IF EXISTS "GameScreenshot";
		DROP TABLE IF EXISTS "GameFeature";`,
	},
	{
		Version: 3,
		Up: `CREATE TABLE "NewsPost" (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			isPublished BOOLEAN NOT NULL DEFAULT 0,
			publishedAt DATETIME,
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE "MediaAsset" (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			mimeType TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			url TEXT NOT NULL,
			createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		Down: `DROP TABLE IF EXISTS "MediaAsset";
		DROP TABLE IF EXISTS "NewsPost";`,
	},
}

// runSQLiteMigrations applies all pending SQLite migrations to the database
func runSQLiteMigrations(db *sql.DB) error {
	// Create schema_migrations table if it doesn't exist
	if err := createSQLiteMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current schema version
	currentVersion, err := getCurrentSQLiteVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	// Apply pending migrations
	for _, migration := range sqliteMigrations {
		if migration.Version <= currentVersion {
			continue // Migration already applied
		}

		if err := applySQLiteMigration(db, migration); err != nil {
			return fmt.Errorf("failed to apply migration version %d: %w", migration.Version, err)
		}
	}

	return nil
}

// createSQLiteMigrationsTable creates the schema_migrations table for tracking applied migrations
func createSQLiteMigrationsTable(db *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	)`

	_, err := db.Exec(query)
	return err
}

// getCurrentSQLiteVersion returns the highest applied migration version
func getCurrentSQLiteVersion(db *sql.DB) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`

	var version int
	err := db.QueryRow(query).Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// applySQLiteMigration applies a single migration within a transaction
func applySQLiteMigration(db *sql.DB, migration SQLiteMigration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Execute the migration SQL
	if _, err := tx.Exec(migration.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	// Record the migration as applied
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version (for testing/debugging)
func (s *SQLiteStore) SchemaVersion() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, ErrStoreClosed
	}
	return getCurrentSQLiteVersion(s.db)
}
