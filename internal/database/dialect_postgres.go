package database

import (
	"fmt"
	"strings"
)

// pgSanitizeString strips null bytes (0x00) from a string. SQLite stores these
// fine but PostgreSQL rejects them with "invalid byte sequence for encoding UTF8".
func pgSanitizeString(s string) string {
	if strings.ContainsRune(s, '\x00') {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

// PostgresDialect implements the Dialect interface for PostgreSQL databases.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string             { return "pgx" }
func (d *PostgresDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *PostgresDialect) Placeholder(index int) string    { return fmt.Sprintf("$%d", index) }
func (d *PostgresDialect) Sanitize(s string) string        { return pgSanitizeString(s) }

func (d *PostgresDialect) TableExistsSQL(table string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name='%s'",
		table)
}

func (d *PostgresDialect) CreateSnapshotTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT now()
	)`, table)
}

func (d *PostgresDialect) UpsertSnapshotSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (name, body) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`, table)
}
