// Package ingest detects a log file's format and loads it into a RecordSet.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cdtdelta/logweave/internal/csvparser"
	"github.com/cdtdelta/logweave/internal/jsonlparser"
	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"github.com/cdtdelta/logweave/internal/tlnparser"
	"go.uber.org/zap"
)

// Format names a supported input format.
type Format string

const (
	JSONL Format = "jsonl"
	CSV   Format = "csv"
	TLN   Format = "tln"
)

// ErrUnknownFormat is returned when no parser accepts a file.
var ErrUnknownFormat = errors.New("unrecognized log format")

// Result is a loaded file.
type Result struct {
	Records  *model.RecordSet
	Format   Format
	Count    int
	Excluded int
}

var extensions = map[string]Format{
	".jsonl":  JSONL,
	".ndjson": JSONL,
	".json":   JSONL,
	".csv":    CSV,
	".tln":    TLN,
}

// Detect picks a format from the file extension. Files with other
// extensions are probed with each parser's validator in turn.
func Detect(path string) (Format, error) {
	if f, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return f, nil
	}
	if err := jsonlparser.ValidateFile(path); err == nil {
		return JSONL, nil
	}
	if err := tlnparser.ValidateFile(path); err == nil {
		return TLN, nil
	}
	if err := csvparser.ValidateHeader(path); err == nil {
		return CSV, nil
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnknownFormat)
}

// Load detects the format of path and reads every record.
// An onProgress callback is called every 10,000 records if non-nil.
func Load(path string, onProgress func(count int)) (*Result, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, err
	}
	return LoadAs(path, format, onProgress)
}

// LoadAs reads path with the parser for format.
func LoadAs(path string, format Format, onProgress func(count int)) (*Result, error) {
	res := &Result{Format: format}
	switch format {
	case JSONL:
		r, err := jsonlparser.ReadRecords(path, onProgress)
		if err != nil {
			return nil, fmt.Errorf("reading JSONL: %w", err)
		}
		res.Records, res.Count, res.Excluded = r.Records, r.Count, r.Excluded
	case CSV:
		if err := csvparser.ValidateHeader(path); err != nil {
			return nil, fmt.Errorf("invalid CSV file: %w", err)
		}
		r, err := csvparser.ReadRecords(path, 0, onProgress)
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		res.Records, res.Count, res.Excluded = r.Records, r.Count, r.Excluded
	case TLN:
		if err := tlnparser.ValidateFile(path); err != nil {
			return nil, fmt.Errorf("invalid TLN file: %w", err)
		}
		r, err := tlnparser.ReadRecords(path, onProgress)
		if err != nil {
			return nil, fmt.Errorf("reading TLN: %w", err)
		}
		res.Records, res.Count, res.Excluded = r.Records, r.Count, r.Excluded
	default:
		return nil, fmt.Errorf("format %q: %w", format, ErrUnknownFormat)
	}

	logger.Infoz("loaded log",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("records", res.Count),
		zap.Int("excluded", res.Excluded))
	return res, nil
}
