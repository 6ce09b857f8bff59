package jsonlparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cdtdelta/logweave/internal/model"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

// --- Validation Tests ---

func TestValidateFile_Valid(t *testing.T) {
	content := `{"time": "2024-01-15T10:30:00Z", "level": "info", "msg": "started"}
`
	path := writeTempFile(t, "valid.jsonl", content)
	if err := ValidateFile(path); err != nil {
		t.Errorf("expected valid file, got error: %v", err)
	}
}

func TestValidateFile_LeadingBlankLines(t *testing.T) {
	path := writeTempFile(t, "blank.jsonl", "\n\n{\"a\": 1}\n")
	if err := ValidateFile(path); err != nil {
		t.Errorf("expected valid file, got error: %v", err)
	}
}

func TestValidateFile_Empty(t *testing.T) {
	path := writeTempFile(t, "empty.jsonl", "")
	if err := ValidateFile(path); err == nil {
		t.Error("expected error for empty file, got nil")
	}
}

func TestValidateFile_NotJSON(t *testing.T) {
	path := writeTempFile(t, "notjson.jsonl", "this is not json\n")
	if err := ValidateFile(path); err == nil {
		t.Error("expected error for non-JSON file, got nil")
	}
}

func TestValidateFile_Array(t *testing.T) {
	path := writeTempFile(t, "array.jsonl", "[1, 2, 3]\n")
	if err := ValidateFile(path); err == nil {
		t.Error("expected error for JSON array, got nil")
	}
}

// --- Read Tests ---

func TestReadRecords_KeyOrder(t *testing.T) {
	content := `{"time": "10:00:01", "level": "info", "msg": "a"}
{"msg": "b", "level": "warn", "time": "10:00:02", "host": "web1"}
`
	path := writeTempFile(t, "order.jsonl", content)
	result, err := ReadRecords(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rs := result.Records
	want := []string{"time", "level", "msg", "host"}
	headers := rs.Headers()
	if len(headers) != len(want) {
		t.Fatalf("expected %d headers, got %d", len(want), len(headers))
	}
	for i, name := range want {
		if headers[i].Name != name {
			t.Errorf("header %d: expected %q, got %q", i, name, headers[i].Name)
		}
	}

	if got := rs.Value(1, "level"); got != "warn" {
		t.Errorf("expected 'warn', got %q", got)
	}
	if got := rs.Value(0, "host"); got != "" {
		t.Errorf("expected empty host for first record, got %q", got)
	}
	if result.Count != 2 {
		t.Errorf("expected count 2, got %d", result.Count)
	}
}

func TestReadRecords_Stringify(t *testing.T) {
	content := `{"n": 42, "f": 1.5, "ok": true, "none": null, "obj": {"a": [1, 2]}, "s": "x\"y"}
`
	result, err := Read(strings.NewReader(content), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rs := result.Records
	cases := map[string]string{
		"n":    "42",
		"f":    "1.5",
		"ok":   "true",
		"none": "",
		"obj":  `{"a":[1,2]}`,
		"s":    `x"y`,
	}
	for col, want := range cases {
		if got := rs.Value(0, col); got != want {
			t.Errorf("%s: expected %q, got %q", col, want, got)
		}
	}
	if rs.Headers()[0].Type != model.Number {
		t.Errorf("expected numeric column type for n, got %s", rs.Headers()[0].Type)
	}
}

func TestReadRecords_Excluded(t *testing.T) {
	content := `{"a": "1"}
not json
{"a": "2"}

[1]
`
	result, err := Read(strings.NewReader(content), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Count != 2 {
		t.Errorf("expected 2 records, got %d", result.Count)
	}
	if result.Excluded != 2 {
		t.Errorf("expected 2 excluded, got %d", result.Excluded)
	}
}

func TestReadRecords_CanonicalRawText(t *testing.T) {
	content := "{\"level\": \"info\", \"msg\": \"a\"}\n\n{\"level\": \"error\", \"msg\": \"b\"}\n"
	result, err := Read(strings.NewReader(content), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Canonical {
		t.Fatal("expected canonical raw text")
	}
	rs := result.Records
	if !strings.HasPrefix(content, rs.Raw()) {
		t.Errorf("raw text should be the file text, got %q", rs.Raw())
	}
	if b := rs.Bounds(1); rs.Raw()[b.Start:b.End] != `{"level": "error", "msg": "b"}` {
		t.Errorf("unexpected span for record 1: %+v", b)
	}
	if b := rs.Bounds(1); b.Start != 31 {
		t.Errorf("expected record 1 to start after the blank line, got %d", b.Start)
	}
}

func TestReadRecords_NonCanonicalRendered(t *testing.T) {
	content := `{"level":"info","n":1}
`
	result, err := Read(strings.NewReader(content), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Canonical {
		t.Error("expected rendered raw text")
	}
	if got := result.Records.Raw(); got != `{"level": "info", "n": "1"}` {
		t.Errorf("unexpected raw text %q", got)
	}
}

func TestReadRecords_Progress(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20001; i++ {
		sb.WriteString(`{"i": "x"}` + "\n")
	}
	var calls []int
	result, err := Read(strings.NewReader(sb.String()), func(n int) { calls = append(calls, n) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Count != 20001 {
		t.Errorf("expected 20001 records, got %d", result.Count)
	}
	if len(calls) != 2 || calls[0] != 10000 || calls[1] != 20000 {
		t.Errorf("unexpected progress calls: %v", calls)
	}
}

func TestReadRecords_MissingFile(t *testing.T) {
	if _, err := ReadRecords(filepath.Join(t.TempDir(), "nope.jsonl"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}
