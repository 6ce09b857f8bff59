package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cdtdelta/logweave/internal/model"
	"github.com/cdtdelta/logweave/internal/query"
	"github.com/cdtdelta/logweave/internal/rules"
	"github.com/cdtdelta/logweave/internal/structure"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func createTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRules() rules.RuleSet {
	return rules.RuleSet{
		{
			Column:      "severity",
			Description: "error lines are high",
			Body: &rules.FlagRule{
				DefaultValue: "low",
				Flags: []rules.Flag{{
					Name: "high",
					Conditions: rules.Guard{{
						{Column: "level", Operation: rules.Equals, Text: "error"},
					}},
				}},
			},
		},
	}
}

func sampleRecords() *model.RecordSet {
	names := []string{"time", "level", "msg"}
	rows := []model.Record{
		{"10:00:01", "info", "service started"},
		{"10:00:02", "error", "disk full"},
	}
	return model.NewRecordSet(model.InferHeaders(names, rows), rows)
}

func TestOpenCreatesSchema(t *testing.T) {
	path := tempDBPath(t)

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	db.Close()

	// Verify the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	// Reopen it
	db2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db2.Close()

	for _, table := range snapshotTables {
		var count int
		if err := db2.Conn().QueryRow(db2.dialect.TableExistsSQL(table)).Scan(&count); err != nil {
			t.Fatalf("checking %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
	if db2.Path() != path {
		t.Errorf("expected path %q, got %q", path, db2.Path())
	}
}

func TestOpenStoreUnsupportedDriver(t *testing.T) {
	if _, err := OpenStore("mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	store, err := OpenStore("sqlite", tempDBPath(t))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Errorf("Migrate on existing schema failed: %v", err)
	}
}

// --- Rule Set Tests ---

func TestRuleSetRoundTrip(t *testing.T) {
	db := createTestDB(t)

	if err := db.SaveRuleSet("triage", sampleRules()); err != nil {
		t.Fatalf("SaveRuleSet failed: %v", err)
	}
	loaded, err := db.LoadRuleSet("triage")
	if err != nil {
		t.Fatalf("LoadRuleSet failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Column != "severity" {
		t.Fatalf("unexpected rule set: %+v", loaded)
	}

	got := loaded.Apply(sampleRecords()).Column("severity")
	if len(got) != 2 || got[0] != "low" || got[1] != "high" {
		t.Errorf("loaded rules evaluate differently: %v", got)
	}
}

func TestRuleSetReplace(t *testing.T) {
	db := createTestDB(t)

	if err := db.SaveRuleSet("triage", sampleRules()); err != nil {
		t.Fatalf("SaveRuleSet failed: %v", err)
	}
	if err := db.SaveRuleSet("triage", rules.RuleSet{}); err != nil {
		t.Fatalf("second SaveRuleSet failed: %v", err)
	}
	names, err := db.ListRuleSets()
	if err != nil {
		t.Fatalf("ListRuleSets failed: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected 1 rule set, got %d", len(names))
	}
	loaded, err := db.LoadRuleSet("triage")
	if err != nil {
		t.Fatalf("LoadRuleSet failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected replaced empty rule set, got %d rules", len(loaded))
	}
}

func TestRuleSetInvalidNotSaved(t *testing.T) {
	db := createTestDB(t)

	bad := rules.RuleSet{{Column: "s", Body: &rules.StateRule{Initial: 3, States: []rules.State{{Name: "a"}}}}}
	if err := db.SaveRuleSet("bad", bad); !errors.Is(err, rules.ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule, got %v", err)
	}
	names, _ := db.ListRuleSets()
	if len(names) != 0 {
		t.Errorf("expected nothing saved, got %v", names)
	}
}

func TestLoadRuleSetMissing(t *testing.T) {
	db := createTestDB(t)
	if _, err := db.LoadRuleSet("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndDeleteRuleSets(t *testing.T) {
	db := createTestDB(t)

	for _, name := range []string{"zeta", "alpha"} {
		if err := db.SaveRuleSet(name, sampleRules()); err != nil {
			t.Fatalf("SaveRuleSet %s failed: %v", name, err)
		}
	}
	names, err := db.ListRuleSets()
	if err != nil {
		t.Fatalf("ListRuleSets failed: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("expected sorted names, got %v", names)
	}

	if err := db.DeleteRuleSet("alpha"); err != nil {
		t.Fatalf("DeleteRuleSet failed: %v", err)
	}
	names, _ = db.ListRuleSets()
	if len(names) != 1 || names[0] != "zeta" {
		t.Errorf("expected only zeta after delete, got %v", names)
	}
}

func TestSaveEmptyName(t *testing.T) {
	db := createTestDB(t)
	if err := db.SaveRuleSet("", sampleRules()); err == nil {
		t.Error("expected error for empty name")
	}
}

// --- Structure Tests ---

func TestStructureRoundTrip(t *testing.T) {
	db := createTestDB(t)
	rs := sampleRecords()

	d, err := structure.Definition{}.AddEntry(rs, 0)
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	d, err = d.InsertWildcard(0, 2, 0, 8, 15, "w1")
	if err != nil {
		t.Fatalf("InsertWildcard failed: %v", err)
	}

	if err := db.SaveStructure("startup", d); err != nil {
		t.Fatalf("SaveStructure failed: %v", err)
	}
	loaded, err := db.LoadStructure("startup")
	if err != nil {
		t.Fatalf("LoadStructure failed: %v", err)
	}

	if want, got := structure.Compile(d, rs.Layout()), structure.Compile(loaded, rs.Layout()); want != got {
		t.Errorf("pattern changed after round trip:\nwant %s\ngot  %s", want, got)
	}
	if _, ok := loaded.Wildcard("w1"); !ok {
		t.Error("expected wildcard w1 to survive round trip")
	}

	names, _ := db.ListStructures()
	if len(names) != 1 || names[0] != "startup" {
		t.Errorf("unexpected structure names %v", names)
	}
	if err := db.DeleteStructure("startup"); err != nil {
		t.Fatalf("DeleteStructure failed: %v", err)
	}
	if _, err := db.LoadStructure("startup"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

// --- Saved Search Tests ---

func TestSavedSearches(t *testing.T) {
	db := createTestDB(t)

	errorsOnly := query.Options{Column: 1, Text: "error", WholeWord: true}
	disks := query.Options{Column: query.AllColumns, Text: `sd[a-z]`, Regex: true}

	if err := db.SaveSearch("errors", errorsOnly); err != nil {
		t.Fatalf("SaveSearch failed: %v", err)
	}
	if err := db.SaveSearch("disks", disks); err != nil {
		t.Fatalf("SaveSearch failed: %v", err)
	}

	searches, err := db.GetSavedSearches()
	if err != nil {
		t.Fatalf("GetSavedSearches failed: %v", err)
	}
	if len(searches) != 2 {
		t.Fatalf("expected 2 saved searches, got %d", len(searches))
	}
	if searches[0].Name != "disks" || searches[0].Options != disks {
		t.Errorf("unexpected first search %+v", searches[0])
	}
	if searches[1].Options != errorsOnly {
		t.Errorf("unexpected second search %+v", searches[1])
	}

	if err := db.DeleteSearch("disks"); err != nil {
		t.Fatalf("DeleteSearch failed: %v", err)
	}
	searches, _ = db.GetSavedSearches()
	if len(searches) != 1 {
		t.Errorf("expected 1 saved search after delete, got %d", len(searches))
	}
}

// --- Dialect Tests ---

func TestPostgresDialect(t *testing.T) {
	d := &PostgresDialect{}
	if d.Placeholder(2) != "$2" {
		t.Errorf("expected $2, got %s", d.Placeholder(2))
	}
	if got := d.Sanitize("a\x00b"); got != "ab" {
		t.Errorf("expected null bytes stripped, got %q", got)
	}
	if d.DriverName() != "pgx" {
		t.Errorf("expected pgx driver, got %s", d.DriverName())
	}
}

func TestSQLiteDialectKeepsText(t *testing.T) {
	d := &SQLiteDialect{}
	if got := d.Sanitize("a\x00b"); got != "a\x00b" {
		t.Errorf("expected text unchanged, got %q", got)
	}
	if d.Placeholder(5) != "?" {
		t.Errorf("expected ?, got %s", d.Placeholder(5))
	}
}
