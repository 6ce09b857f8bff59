package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/query"
	"github.com/cdtdelta/logweave/internal/rules"
	"github.com/cdtdelta/logweave/internal/structure"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Snapshot tables. Each row is a named JSON document.
const (
	ruleSetTable   = "lw_rule_sets"
	structureTable = "lw_structures"
	searchTable    = "lw_saved_searches"
)

var snapshotTables = []string{ruleSetTable, structureTable, searchTable}

// DB manages snapshot storage on a database/sql connection.
// It implements the Store interface for every Dialect.
type DB struct {
	path    string
	conn    *sql.DB
	dialect Dialect
}

// OpenSQLite opens a logweave SQLite database, creating the file and its
// tables if they do not exist yet.
func OpenSQLite(path string) (*DB, error) {
	return open(&SQLiteDialect{}, path)
}

func open(d Dialect, pathOrConnStr string) (*DB, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify the connection works
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := &DB{path: pathOrConnStr, conn: conn, dialect: d}
	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the file path or connection string of the database.
func (db *DB) Path() string {
	return db.path
}

// Conn returns the underlying *sql.DB connection for advanced query usage.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates any snapshot table the database does not have yet.
func (db *DB) Migrate() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range snapshotTables {
		var count int
		if err := tx.QueryRow(db.dialect.TableExistsSQL(table)).Scan(&count); err != nil {
			return fmt.Errorf("checking table %s: %w", table, err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.Exec(db.dialect.CreateSnapshotTableSQL(table)); err != nil {
			return fmt.Errorf("creating table %s: %w", table, err)
		}
		logger.Debugz("created table", zap.String("table", table), zap.String("driver", db.dialect.DriverName()))
	}

	return tx.Commit()
}

// -- Rule sets --

// SaveRuleSet stores set under name, replacing any previous version.
func (db *DB) SaveRuleSet(name string, set rules.RuleSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	body, err := rules.Encode(set, rules.JSON)
	if err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}
	return db.putSnapshot(ruleSetTable, name, body)
}

// LoadRuleSet returns the rule set stored under name.
func (db *DB) LoadRuleSet(name string) (rules.RuleSet, error) {
	body, err := db.getSnapshot(ruleSetTable, name)
	if err != nil {
		return nil, fmt.Errorf("rule set %q: %w", name, err)
	}
	return rules.Decode(body, rules.JSON)
}

// ListRuleSets returns the names of all stored rule sets in order.
func (db *DB) ListRuleSets() ([]string, error) {
	return db.listSnapshots(ruleSetTable)
}

// DeleteRuleSet removes a rule set by name.
func (db *DB) DeleteRuleSet(name string) error {
	return db.deleteSnapshot(ruleSetTable, name)
}

// -- Structures --

// SaveStructure stores d under name, replacing any previous version.
func (db *DB) SaveStructure(name string, d structure.Definition) error {
	body, err := structure.Encode(d, false)
	if err != nil {
		return fmt.Errorf("encoding structure: %w", err)
	}
	return db.putSnapshot(structureTable, name, body)
}

// LoadStructure returns the structure definition stored under name.
func (db *DB) LoadStructure(name string) (structure.Definition, error) {
	body, err := db.getSnapshot(structureTable, name)
	if err != nil {
		return structure.Definition{}, fmt.Errorf("structure %q: %w", name, err)
	}
	return structure.Decode(body, false)
}

// ListStructures returns the names of all stored structures in order.
func (db *DB) ListStructures() ([]string, error) {
	return db.listSnapshots(structureTable)
}

// DeleteStructure removes a structure by name.
func (db *DB) DeleteStructure(name string) error {
	return db.deleteSnapshot(structureTable, name)
}

// -- Saved searches --

// GetSavedSearches returns all saved searches ordered by name.
func (db *DB) GetSavedSearches() ([]SavedSearch, error) {
	rows, err := db.conn.Query("SELECT name, body FROM " + searchTable + " ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var searches []SavedSearch
	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return nil, err
		}
		s := SavedSearch{Name: name}
		if err := json.Unmarshal([]byte(body), &s.Options); err != nil {
			return nil, fmt.Errorf("decoding saved search %q: %w", name, err)
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}

// SaveSearch stores a named search, replacing one with the same name.
func (db *DB) SaveSearch(name string, opts query.Options) error {
	body, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encoding search: %w", err)
	}
	return db.putSnapshot(searchTable, name, body)
}

// DeleteSearch removes a saved search by name.
func (db *DB) DeleteSearch(name string) error {
	return db.deleteSnapshot(searchTable, name)
}

// -- Snapshot rows --

func (db *DB) putSnapshot(table, name string, body []byte) error {
	if name == "" {
		return fmt.Errorf("snapshot name is empty")
	}
	_, err := db.conn.Exec(db.dialect.UpsertSnapshotSQL(table),
		db.dialect.Sanitize(name), db.dialect.Sanitize(string(body)))
	if err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}

func (db *DB) getSnapshot(table, name string) ([]byte, error) {
	var body string
	err := db.conn.QueryRow(
		"SELECT body FROM "+table+" WHERE name = "+db.dialect.Placeholder(1),
		db.dialect.Sanitize(name),
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (db *DB) listSnapshots(table string) ([]string, error) {
	rows, err := db.conn.Query("SELECT name FROM " + table + " ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (db *DB) deleteSnapshot(table, name string) error {
	_, err := db.conn.Exec(
		"DELETE FROM "+table+" WHERE name = "+db.dialect.Placeholder(1),
		db.dialect.Sanitize(name),
	)
	return err
}
