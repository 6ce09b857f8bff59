package csvparser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cdtdelta/logweave/internal/model"
	"github.com/cdtdelta/logweave/internal/query"
	"github.com/spf13/cast"
)

// ReadResult contains the outcome of a CSV import operation.
type ReadResult struct {
	Records  *model.RecordSet
	Count    int
	Excluded int
}

// ValidateHeader checks that a CSV file starts with a usable header row.
func ValidateHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(newNullStripper(f))
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	return checkHeader(header)
}

func checkHeader(header []string) error {
	nonEmpty := 0
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return fmt.Errorf("header has no column names")
	}
	return nil
}

// ReadRecords reads all rows of a CSV file. The first row names the
// columns. Optionally limits the number of records (pass 0 for no limit).
// An onProgress callback is called every 10,000 records if non-nil.
func ReadRecords(path string, limit int, onProgress func(count int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Read(f, limit, onProgress)
}

// Read parses CSV from r. See ReadRecords.
func Read(r io.Reader, limit int, onProgress func(count int)) (*ReadResult, error) {
	reader := csv.NewReader(newNullStripper(r))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable field counts

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	names := columnNames(header)

	result := &ReadResult{}
	var rows []model.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", result.Count+result.Excluded+1, err)
		}

		if limit > 0 && result.Count >= limit {
			break
		}

		if isBlank(row) {
			result.Excluded++
			continue
		}

		rec := make(model.Record, len(names))
		for i := range rec {
			rec[i] = safeIndex(row, i)
		}
		rows = append(rows, rec)
		result.Count++

		if onProgress != nil && result.Count%10000 == 0 {
			onProgress(result.Count)
		}
	}

	result.Records = model.NewRecordSet(model.InferHeaders(names, rows), rows)
	return result, nil
}

// columnNames trims header cells, names empty ones by position and makes
// duplicates unique with a numeric suffix.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		names[i] = name
	}
	return names
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteRecords writes every column of rs, derived columns included, with
// a header row.
func WriteRecords(w io.Writer, rs *model.RecordSet) error {
	writer := csv.NewWriter(w)

	headers := rs.Headers()
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	if err := writer.Write(names); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rs.Rows() {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes rs to a CSV file. See WriteRecords.
func WriteFile(path string, rs *model.RecordSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()
	return WriteRecords(f, rs)
}

// SavedSearch is one row of a saved search CSV file.
type SavedSearch struct {
	Name    string
	Options query.Options
}

var savedSearchHeader = []string{"Name", "Text", "Column", "Regex", "WholeWord", "CaseSensitive"}

// ReadSavedSearches reads saved searches from a CSV file.
// Expected header: Name, Text, Column, Regex, WholeWord, CaseSensitive
func ReadSavedSearches(path string) ([]SavedSearch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	if len(header) < len(savedSearchHeader) {
		return nil, fmt.Errorf("invalid saved search header: expected %v", savedSearchHeader)
	}
	for i, want := range savedSearchHeader {
		if header[i] != want {
			return nil, fmt.Errorf("invalid saved search header: expected %v", savedSearchHeader)
		}
	}

	var searches []SavedSearch
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		column := query.AllColumns
		if v := safeIndex(row, 2); v != "" {
			column = cast.ToInt(v)
		}
		searches = append(searches, SavedSearch{
			Name: safeIndex(row, 0),
			Options: query.Options{
				Text:          safeIndex(row, 1),
				Column:        column,
				Regex:         cast.ToBool(safeIndex(row, 3)),
				WholeWord:     cast.ToBool(safeIndex(row, 4)),
				CaseSensitive: cast.ToBool(safeIndex(row, 5)),
			},
		})
	}

	return searches, nil
}

// WriteSavedSearches writes saved searches to a CSV file.
func WriteSavedSearches(path string, searches []SavedSearch) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	if err := writer.Write(savedSearchHeader); err != nil {
		return err
	}

	for _, s := range searches {
		row := []string{
			s.Name,
			s.Options.Text,
			strconv.Itoa(s.Options.Column),
			strconv.FormatBool(s.Options.Regex),
			strconv.FormatBool(s.Options.WholeWord),
			strconv.FormatBool(s.Options.CaseSensitive),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}

// safeIndex returns the value at index i, or empty string if out of bounds.
func safeIndex(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// nullStripper wraps a reader and strips null bytes from the stream so
// csv.Reader does not reject the input.
type nullStripper struct {
	r io.Reader
}

func newNullStripper(r io.Reader) io.Reader {
	return &nullStripper{r: r}
}

func (ns *nullStripper) Read(p []byte) (int, error) {
	n, err := ns.r.Read(p)
	if n > 0 {
		// Replace null bytes in place
		cleaned := strings.ReplaceAll(string(p[:n]), "\x00", "")
		copy(p, cleaned)
		n = len(cleaned)
	}
	return n, err
}
