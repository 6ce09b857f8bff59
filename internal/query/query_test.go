package query

import (
	"reflect"
	"testing"

	"github.com/cdtdelta/logweave/internal/model"
)

func sampleRows() []model.Record {
	return []model.Record{
		{"2025-01-01 10:00:00", "auth", "user a b logged in"},
		{"2025-01-01 10:00:01", "auth", "b then a"},
		{"2025-01-01 10:00:02", "kernel", "category changed"},
		{"2025-01-01 10:00:03", "Kernel", "the cat sat"},
		{"2025-01-01 10:00:04", "disk", "Disk FULL on sda"},
	}
}

func assertIndices(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// --- Term Tests ---

func TestTerms(t *testing.T) {
	if got := Terms("a  b c"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected terms: %v", got)
	}
	if got := Terms(`"a b"`); !reflect.DeepEqual(got, []string{"a b"}) {
		t.Errorf("expected phrase, got %v", got)
	}
	if got := Terms(`""`); len(got) != 0 {
		t.Errorf("expected no terms, got %v", got)
	}
	if got := Terms(`"a b`); !reflect.DeepEqual(got, []string{`"a`, "b"}) {
		t.Errorf("unbalanced quote should split, got %v", got)
	}
}

// --- Plain Search Tests ---

func TestQuotedPhrase(t *testing.T) {
	got := Filter(sampleRows(), Options{Column: AllColumns, Text: `"a b"`})
	assertIndices(t, got, []int{0})
}

func TestUnquotedTermsAreANDed(t *testing.T) {
	got := Filter(sampleRows(), Options{Column: AllColumns, Text: "a b"})
	assertIndices(t, got, []int{0, 1})

	got = Filter(sampleRows(), Options{Column: AllColumns, Text: "auth kernel"})
	assertIndices(t, got, nil)
}

func TestWholeWord(t *testing.T) {
	rows := sampleRows()

	got := Filter(rows, Options{Column: 2, Text: "cat"})
	assertIndices(t, got, []int{2, 3})

	got = Filter(rows, Options{Column: 2, Text: "cat", WholeWord: true})
	assertIndices(t, got, []int{3})

	got = Filter([]model.Record{{"category"}}, Options{Column: 0, Text: "cat", WholeWord: true})
	assertIndices(t, got, nil)

	got = Filter([]model.Record{{"cat"}}, Options{Column: 0, Text: "cat", WholeWord: true})
	assertIndices(t, got, []int{0})
}

func TestWholeWordSkipsEarlierPartialHit(t *testing.T) {
	got := Filter([]model.Record{{"category cat"}}, Options{Column: 0, Text: "cat", WholeWord: true})
	assertIndices(t, got, []int{0})
}

func TestCaseSensitivity(t *testing.T) {
	rows := sampleRows()

	got := Filter(rows, Options{Column: 1, Text: "kernel"})
	assertIndices(t, got, []int{2, 3})

	got = Filter(rows, Options{Column: 1, Text: "kernel", CaseSensitive: true})
	assertIndices(t, got, []int{2})
}

func TestSingleColumn(t *testing.T) {
	got := Filter(sampleRows(), Options{Column: 1, Text: "disk"})
	assertIndices(t, got, []int{4})

	got = Filter(sampleRows(), Options{Column: 7, Text: "disk"})
	assertIndices(t, got, nil)
}

func TestEmptyTextMatchesAll(t *testing.T) {
	got := Filter(sampleRows(), Options{Column: AllColumns, Text: "  "})
	assertIndices(t, got, []int{0, 1, 2, 3, 4})
}

// --- Regex Search Tests ---

func TestRegexTerms(t *testing.T) {
	rows := sampleRows()

	got := Filter(rows, Options{Column: 2, Text: "^disk full", Regex: true})
	assertIndices(t, got, []int{4})

	got = Filter(rows, Options{Column: 2, Text: "^disk full", Regex: true, CaseSensitive: true})
	assertIndices(t, got, nil)

	got = Filter(rows, Options{Column: AllColumns, Text: `auth \d{2}:00:01`, Regex: true})
	assertIndices(t, got, []int{1})
}

func TestRegexWholeWord(t *testing.T) {
	got := Filter(sampleRows(), Options{Column: 2, Text: "cat|sda", Regex: true, WholeWord: true})
	assertIndices(t, got, []int{3, 4})
}

func TestInvalidRegexMatchesNothing(t *testing.T) {
	got := Filter(sampleRows(), Options{Column: AllColumns, Text: "a (", Regex: true})
	assertIndices(t, got, nil)
}

func TestSearchRecordSet(t *testing.T) {
	headers := []model.Header{{Name: "time"}, {Name: "source"}, {Name: "msg"}}
	rs := model.NewRecordSet(headers, sampleRows())

	got := Search(rs, Options{Column: AllColumns, Text: "full", WholeWord: true})
	assertIndices(t, got, []int{4})

	empty := model.NewRecordSet(headers, nil)
	if got := Search(empty, Options{Text: "x"}); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
}
