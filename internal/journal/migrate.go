package journal

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migration is one schema step
type migration struct {
	Version int
	Name    string
	UpSQL   string
}

var (
	filenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_-]+)\.sql$`)
	upMarkerRegex = regexp.MustCompile(`^--\s*\+migrate\s+Up\s*$`)
)

// parseMigration parses one NNN_name.sql file. Everything after the
// "-- +migrate Up" marker is the statement body.
func parseMigration(filename string, content []byte) (migration, error) {
	matches := filenameRegex.FindStringSubmatch(filename)
	if matches == nil {
		return migration{}, fmt.Errorf("invalid migration filename format: %s (expected NNN_name.sql)", filename)
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return migration{}, fmt.Errorf("invalid version number in filename: %s", matches[1])
	}

	lines := strings.Split(string(content), "\n")
	start := -1
	for i, line := range lines {
		if upMarkerRegex.MatchString(strings.TrimSpace(line)) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return migration{}, fmt.Errorf("missing '-- +migrate Up' marker in migration file: %s", filename)
	}

	body := strings.TrimSpace(strings.Join(lines[start:], "\n"))
	if body == "" {
		return migration{}, fmt.Errorf("migration file contains no SQL statements: %s", filename)
	}

	return migration{Version: version, Name: matches[2], UpSQL: body}, nil
}

// loadMigrations reads every migration in fsys, sorted, and rejects gaps or
// duplicate versions.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !filenameRegex.MatchString(entry.Name()) {
			continue
		}
		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file: %w", err)
		}
		m, err := parseMigration(entry.Name(), content)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for i, m := range migrations {
		if m.Version != i+1 {
			if i > 0 && m.Version == migrations[i-1].Version {
				return nil, fmt.Errorf("duplicate migration version: %d", m.Version)
			}
			return nil, fmt.Errorf("gap in migration versions: expected %d, found %d", i+1, m.Version)
		}
	}

	return migrations, nil
}

// migrate applies every pending embedded migration. Each one runs in its own
// transaction together with its schema_migrations row.
func migrate(db *sql.DB) (int, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return 0, fmt.Errorf("failed to create schema table: %w", err)
	}

	migrations, err := loadMigrations(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := withTransaction(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.UpSQL); err != nil {
				return fmt.Errorf("failed to execute SQL: %w", err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
				return fmt.Errorf("failed to record migration: %w", err)
			}
			return nil
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		applied++
	}

	return applied, nil
}
