package database

// Dialect abstracts all database-specific SQL generation.
// Each database backend (SQLite, PostgreSQL) implements this interface.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path; for PostgreSQL a connection string.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// TableExistsSQL returns a query counting tables with the given name.
	TableExistsSQL(table string) string

	// CreateSnapshotTableSQL returns DDL for a table of named text snapshots.
	CreateSnapshotTableSQL(table string) string

	// UpsertSnapshotSQL returns an INSERT that replaces the body of an
	// existing snapshot with the same name. Parameters: name, body.
	UpsertSnapshotSQL(table string) string

	// Sanitize prepares text for storage in the backend.
	Sanitize(s string) string
}
