package database

import "fmt"

// SQLiteDialect implements the Dialect interface for SQLite databases.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string             { return "sqlite" }
func (d *SQLiteDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *SQLiteDialect) Placeholder(index int) string    { return "?" }
func (d *SQLiteDialect) Sanitize(s string) string        { return s }

func (d *SQLiteDialect) TableExistsSQL(table string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='%s'", table)
}

func (d *SQLiteDialect) CreateSnapshotTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`, table)
}

func (d *SQLiteDialect) UpsertSnapshotSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (name, body) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`, table)
}
