package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cdtdelta/logweave/internal/csvparser"
	"github.com/cdtdelta/logweave/internal/ingest"
	"github.com/cdtdelta/logweave/internal/rules"
	"github.com/cdtdelta/logweave/internal/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceLog = `{"time": "10:00:01", "level": "info", "msg": "service started"}
{"time": "10:00:02", "level": "error", "msg": "disk full"}
{"time": "10:00:03", "level": "info", "msg": "retrying"}
`

const severityRules = `- column: severity
  type: FlagRule
  description: errors are high
  defaultValue: low
  flags:
    - name: high
      conditions:
        - - Column: level
            Operation: equals
            Text: error
`

type testEnv struct {
	dir    string
	config string
	log    string
	rules  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	e := &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "logweave.yaml"),
		log:    filepath.Join(dir, "service.jsonl"),
		rules:  filepath.Join(dir, "severity.yaml"),
	}
	cfg := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "logweave.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(e.log, []byte(serviceLog), 0644))
	require.NoError(t, os.WriteFile(e.rules, []byte(severityRules), 0644))
	return e
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// writeStructure saves a one-entry structure matching the error record.
func (e *testEnv) writeStructure(t *testing.T) string {
	t.Helper()
	res, err := ingest.Load(e.log, nil)
	require.NoError(t, err)

	def, err := structure.Definition{}.AddEntry(res.Records, 1)
	require.NoError(t, err)
	def, err = def.ToggleCell(0, 0)
	require.NoError(t, err)

	path := filepath.Join(e.dir, "incident.json")
	require.NoError(t, structure.WriteFile(path, def))
	return path
}

// --- Root Tests ---

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "logweave", cmd.Use)

	for _, name := range []string{"apply", "match", "search", "rules", "structures", "searches"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "--format", "xml", "rules", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// --- Apply Tests ---

func TestApplyWritesCSV(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "apply", "--rules", e.rules, e.log)
	require.NoError(t, err)

	want := "time,level,msg,severity\n" +
		"10:00:01,info,service started,low\n" +
		"10:00:02,error,disk full,high\n" +
		"10:00:03,info,retrying,low\n"
	assert.Equal(t, want, out)
}

func TestApplyJSON(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "--format", "json", "apply", "--rules", e.rules, e.log)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   RecordsView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Headers, 4)
	assert.True(t, resp.Data.Headers[3].Derived)
	assert.Equal(t, "high", resp.Data.Rows[1][3])
}

func TestApplyToFile(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(e.dir, "out.csv")
	out, err := e.run(t, "apply", "-r", e.rules, "-o", path, e.log)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 records with 4 columns")

	res, err := csvparser.ReadRecords(path, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"low", "high", "low"}, res.Records.Column("severity"))
}

func TestApplyRequiresRules(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "apply", e.log)
	assert.Error(t, err)
}

// --- Rules Tests ---

func TestRulesImportListApplyExport(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "rules", "import", e.rules, "--name", "triage")
	require.NoError(t, err)
	assert.Contains(t, out, `Imported 1 rule(s) as "triage"`)

	out, err = e.run(t, "rules", "list")
	require.NoError(t, err)
	assert.Equal(t, "triage\n", out)

	out, err = e.run(t, "apply", "--name", "triage", e.log)
	require.NoError(t, err)
	assert.Contains(t, out, "10:00:02,error,disk full,high")

	exported := filepath.Join(e.dir, "exported.json")
	_, err = e.run(t, "rules", "export", "triage", "--out", exported)
	require.NoError(t, err)
	set, err := rules.ReadFile(exported)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "severity", set[0].Column)
}

func TestRulesImportDefaultName(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "rules", "import", e.rules)
	require.NoError(t, err)

	out, err := e.run(t, "--format", "json", "rules", "list")
	require.NoError(t, err)
	var resp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"severity"}, resp.Data)
}

func TestRulesRenameColumn(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "rules", "import", e.rules, "-n", "triage")
	require.NoError(t, err)

	out, err := e.run(t, "rules", "rename-column", "triage", "severity", "sev")
	require.NoError(t, err)
	assert.Equal(t, "Renamed severity to sev in \"triage\", 0 dependent rule(s) rewritten\n", out)

	out, err = e.run(t, "rules", "export", "triage")
	require.NoError(t, err)
	assert.Contains(t, out, `"column": "sev"`)
}

func TestRulesExportMissing(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "rules", "export", "nope")
	assert.Error(t, err)
}

// --- Structure Tests ---

func TestMatchStructureFile(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeStructure(t)

	out, err := e.run(t, "match", "--structure", path, e.log)
	require.NoError(t, err)
	assert.Equal(t, "1-1\n1 match(es)\n", out)
}

func TestMatchShowsRecords(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeStructure(t)

	out, err := e.run(t, "match", "-s", path, "--show", e.log)
	require.NoError(t, err)
	assert.Contains(t, out, `{"time": "10:00:02", "level": "error", "msg": "disk full"}`)
}

func TestMatchRejectsOtherColumns(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeStructure(t)

	other := filepath.Join(e.dir, "other.jsonl")
	require.NoError(t, os.WriteFile(other, []byte(`{"host": "web1", "status": "200"}`+"\n"), 0644))

	_, err := e.run(t, "match", "-s", path, other)
	assert.ErrorIs(t, err, structure.ErrHeaderMismatch)
}

func TestStructuresSaveShowMatch(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeStructure(t)

	out, err := e.run(t, "structures", "save", "incident", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Saved structure "incident" with 1 entries`)

	out, err = e.run(t, "--format", "json", "structures", "show", "incident")
	require.NoError(t, err)
	var resp struct {
		Data StructureView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "incident", resp.Data.Name)
	assert.Equal(t, 1, resp.Data.Definition.Len())
	assert.Contains(t, resp.Data.Pattern, `"level": "error"`)

	out, err = e.run(t, "--format", "json", "match", "--name", "incident", e.log)
	require.NoError(t, err)
	var match struct {
		Data MatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &match))
	assert.Equal(t, []structure.Range{{Start: 1, End: 1}}, match.Data.Ranges)

	out, err = e.run(t, "structures", "list")
	require.NoError(t, err)
	assert.Equal(t, "incident\n", out)

	_, err = e.run(t, "structures", "delete", "incident")
	require.NoError(t, err)
	_, err = e.run(t, "structures", "show", "incident")
	assert.Error(t, err)
}

// --- Search Tests ---

func TestSearchText(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "search", e.log, "disk full")
	require.NoError(t, err)

	want := "1\t{\"time\": \"10:00:02\", \"level\": \"error\", \"msg\": \"disk full\"}\n" +
		"1 of 3 records\n"
	assert.Equal(t, want, out)
}

func TestSearchSaveAndReuse(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "search", e.log, "info", "--column", "level", "--save", "infos")
	require.NoError(t, err)

	out, err := e.run(t, "--format", "json", "search", e.log, "--saved", "infos")
	require.NoError(t, err)
	var resp struct {
		Data SearchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []int{0, 2}, resp.Data.Matches)
	assert.Equal(t, 1, resp.Data.Options.Column)
}

func TestSearchRegexCaseSensitive(t *testing.T) {
	e := newTestEnv(t)
	out, err := e.run(t, "--format", "json", "search", e.log, "^(DISK|retry)", "--regex", "--column", "msg", "--case-sensitive")
	require.NoError(t, err)
	var resp struct {
		Data SearchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []int{2}, resp.Data.Matches)
}

func TestSearchUnknownColumn(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run(t, "search", e.log, "x", "--column", "nope")
	assert.Error(t, err)
}

func TestSearchesImportExport(t *testing.T) {
	e := newTestEnv(t)
	in := filepath.Join(e.dir, "searches.csv")
	content := "Name,Text,Column,Regex,WholeWord,CaseSensitive\nerrors,error,1,false,true,false\n"
	require.NoError(t, os.WriteFile(in, []byte(content), 0644))

	out, err := e.run(t, "searches", "import", in)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 search(es)\n", out)

	exported := filepath.Join(e.dir, "exported.csv")
	_, err = e.run(t, "searches", "export", exported)
	require.NoError(t, err)

	searches, err := csvparser.ReadSavedSearches(exported)
	require.NoError(t, err)
	require.Len(t, searches, 1)
	assert.Equal(t, "errors", searches[0].Name)
	assert.True(t, searches[0].Options.WholeWord)
	assert.Equal(t, 1, searches[0].Options.Column)

	_, err = e.run(t, "searches", "delete", "errors")
	require.NoError(t, err)
	out, err = e.run(t, "searches", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}
