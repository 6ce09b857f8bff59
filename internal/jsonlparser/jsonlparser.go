package jsonlparser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"go.uber.org/zap"
)

// ReadResult contains the outcome of a JSONL import operation.
type ReadResult struct {
	Records  *model.RecordSet
	Count    int
	Excluded int
	// Canonical is true when every record line already had the standard
	// serialization, so record offsets point into the file text itself.
	Canonical bool
}

// field is one key/value pair of a JSON object, in document order.
type field struct {
	key   string
	value string
}

// ValidateFile checks if a file looks like JSON Lines by reading the first
// non-empty line.
func ValidateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := newScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] != '{' {
			return fmt.Errorf("first line is not a JSON object")
		}
		if _, err := parseObject(line); err != nil {
			return fmt.Errorf("first line is not valid JSON: %w", err)
		}
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return fmt.Errorf("empty file")
}

// ReadRecords reads all objects from a JSON Lines file. Column order is the
// key order of the first object; keys first seen later are appended.
// Lines that are not JSON objects are counted as excluded.
// An onProgress callback is called every 10,000 records if non-nil.
func ReadRecords(path string, onProgress func(count int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Read(f, onProgress)
}

// Read parses JSON Lines from r. See ReadRecords.
func Read(r io.Reader, onProgress func(count int)) (*ReadResult, error) {
	scanner := newScanner(r)

	var (
		lines    []string
		recLines []int
		objects  [][]field
		names    []string
		columns  = make(map[string]int)
	)
	result := &ReadResult{}
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		lines = append(lines, line)

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		obj, err := parseObject(trimmed)
		if err != nil {
			logger.Debugz("skipping line", zap.Int("line", lineNum), zap.Error(err))
			result.Excluded++
			continue
		}

		for _, fld := range obj {
			if _, ok := columns[fld.key]; !ok {
				columns[fld.key] = len(names)
				names = append(names, fld.key)
			}
		}
		objects = append(objects, obj)
		recLines = append(recLines, len(lines)-1)
		result.Count++

		if onProgress != nil && result.Count%10000 == 0 {
			onProgress(result.Count)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading file at line %d: %w", lineNum, err)
	}

	rows := make([]model.Record, len(objects))
	for i, obj := range objects {
		row := make(model.Record, len(names))
		for _, fld := range obj {
			row[columns[fld.key]] = fld.value
		}
		rows[i] = row
	}
	headers := model.InferHeaders(names, rows)

	result.Canonical = isCanonical(headers, rows, lines, recLines)
	if result.Canonical {
		rs, err := model.NewRecordSetFromRaw(headers, rows, strings.Join(lines, "\n"))
		if err == nil {
			result.Records = rs
			return result, nil
		}
		logger.Debugz("falling back to rendered raw text", zap.Error(err))
		result.Canonical = false
	}
	result.Records = model.NewRecordSet(headers, rows)
	return result, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Allow up to 10MB per line
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	return scanner
}

func isCanonical(headers []model.Header, rows []model.Record, lines []string, recLines []int) bool {
	for i, row := range rows {
		if lines[recLines[i]] != model.DefaultLayout.Render(headers, row) {
			return false
		}
	}
	return true
}

// parseObject decodes one JSON object, keeping key order. Duplicate keys
// keep the last value at the position of the first.
func parseObject(line string) ([]field, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}

	var fields []field
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", key, err)
		}
		value := valueToString(raw)
		if i, dup := seen[key]; dup {
			fields[i].value = value
			continue
		}
		seen[key] = len(fields)
		fields = append(fields, field{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after object")
	}
	return fields, nil
}

// valueToString converts a JSON value to its column text. Strings are
// unquoted, null is empty, and other values keep their compact JSON form.
func valueToString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
