package model

import (
	"strings"

	"github.com/spf13/cast"
)

// HeaderType is the value type of a column.
type HeaderType string

const (
	Text   HeaderType = "Text"
	Number HeaderType = "Number"
)

// Header describes one column of a RecordSet.
// Derived columns are produced by rules and never appear in the raw text.
type Header struct {
	Name    string     `json:"name" yaml:"name"`
	Type    HeaderType `json:"type" yaml:"type"`
	Derived bool       `json:"derived,omitempty" yaml:"derived,omitempty"`
}

// Record is one log entry. Values are aligned with the RecordSet headers.
type Record []string

// TimestampFields lists the column names recognized as timestamp-like.
// Matching is case-insensitive.
var TimestampFields = []string{
	"datetime", "date", "time", "timestamp", "ts", "@timestamp",
	"eventtime", "event_time", "logtime", "log_time", "created", "created_at",
}

// IsTimestampField reports whether a column name looks like a timestamp column.
func IsTimestampField(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, f := range TimestampFields {
		if f == lower {
			return true
		}
	}
	return false
}

// InferType returns Number if every non-empty value converts to a number,
// Text otherwise. A column with no non-empty values is Text.
func InferType(values []string) HeaderType {
	seen := false
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := cast.ToFloat64E(v); err != nil {
			return Text
		}
		seen = true
	}
	if !seen {
		return Text
	}
	return Number
}

// InferHeaders builds headers for the given column names, inferring each
// column's type from the rows.
func InferHeaders(names []string, rows []Record) []Header {
	headers := make([]Header, len(names))
	col := make([]string, len(rows))
	for i, name := range names {
		for r, row := range rows {
			col[r] = safeIndex(row, i)
		}
		headers[i] = Header{Name: name, Type: InferType(col)}
	}
	return headers
}

// safeIndex returns the value at index i, or empty string if out of bounds.
func safeIndex(row Record, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}
