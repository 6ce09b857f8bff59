package database

import (
	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenPostgres opens a logweave PostgreSQL database and creates the
// snapshot tables if needed. The database itself must already exist.
func OpenPostgres(connStr string) (*DB, error) {
	return open(&PostgresDialect{}, connStr)
}
