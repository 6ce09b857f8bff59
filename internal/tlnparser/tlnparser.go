package tlnparser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cdtdelta/logweave/internal/model"
)

const (
	tlnHeader    = "Time|Source|Host|User|Description"
	l2ttlnHeader = "Time|Source|Host|User|Description|TZ|Notes"
)

// Column names produced for the five TLN fields and the two L2TTLN extras.
var (
	tlnColumns    = []string{"datetime", "source", "host", "user", "desc"}
	l2ttlnColumns = []string{"datetime", "source", "host", "user", "desc", "timezone", "notes"}
)

// ReadResult contains the outcome of a TLN import operation.
type ReadResult struct {
	Records  *model.RecordSet
	Count    int
	Excluded int
	Format   string // "TLN" or "L2TTLN"
}

// ValidateFile checks if a file is a valid TLN or L2TTLN file.
// Returns an error if the file cannot be parsed.
func ValidateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return fmt.Errorf("empty file")
	}

	header := strings.TrimSpace(scanner.Text())
	if header == l2ttlnHeader || header == tlnHeader {
		return nil
	}

	// Check if first line looks like data (no header)
	parts := strings.Split(header, "|")
	if len(parts) == 5 || len(parts) == 7 {
		// First field should be a numeric timestamp
		if _, err := strconv.ParseInt(parts[0], 10, 64); err == nil {
			return nil
		}
	}

	return fmt.Errorf("not a valid TLN/L2TTLN file: expected 5 or 7 pipe-delimited fields, got %d", len(parts))
}

// ReadRecords reads records from a TLN or L2TTLN file.
// Auto-detects the format based on header or field count.
func ReadRecords(path string, onProgress func(int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Read(f, onProgress)
}

// Read parses TLN from r. See ReadRecords.
func Read(r io.Reader, onProgress func(int)) (*ReadResult, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer for potentially long description lines
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	result := &ReadResult{}
	var rows []model.Record
	lineNum := 0
	fieldCount := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++

		if line == "" {
			continue
		}

		// Detect format from first line
		if fieldCount == 0 {
			switch line {
			case l2ttlnHeader:
				result.Format = "L2TTLN"
				fieldCount = 7
				continue
			case tlnHeader:
				result.Format = "TLN"
				fieldCount = 5
				continue
			}

			// No header, detect from field count
			switch parts := strings.Split(line, "|"); len(parts) {
			case 7:
				result.Format = "L2TTLN"
				fieldCount = 7
			case 5:
				result.Format = "TLN"
				fieldCount = 5
			default:
				return nil, fmt.Errorf("line %d: expected 5 or 7 pipe-delimited fields, got %d", lineNum, len(parts))
			}
		}

		parts := strings.SplitN(line, "|", fieldCount)
		// Tolerate short lines by padding
		for len(parts) < fieldCount {
			parts = append(parts, "")
		}

		row, err := parseTLNLine(parts, fieldCount)
		if err != nil {
			result.Excluded++
			continue
		}

		rows = append(rows, row)
		result.Count++

		if onProgress != nil && result.Count%10000 == 0 {
			onProgress(result.Count)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	columns := tlnColumns
	if fieldCount == 7 {
		columns = l2ttlnColumns
	}
	result.Records = model.NewRecordSet(model.InferHeaders(columns, rows), rows)
	return result, nil
}

// parseTLNLine parses a single TLN or L2TTLN line into a record.
// TLN fields:    Time|Source|Host|User|Description
// L2TTLN fields: Time|Source|Host|User|Description|TZ|Notes
func parseTLNLine(parts []string, fieldCount int) (model.Record, error) {
	row := make(model.Record, fieldCount)

	// Time: Unix epoch seconds
	epoch, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %s", parts[0])
	}
	if epoch > 0 {
		row[0] = time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04:05")
	} else {
		row[0] = "Not a time"
	}

	for i := 1; i < 5; i++ {
		row[i] = strings.TrimSpace(parts[i])
	}

	if fieldCount == 7 {
		row[5] = "UTC"
		if tz := strings.TrimSpace(parts[5]); tz != "" && tz != "-" {
			row[5] = tz
		}
		if notes := strings.TrimSpace(parts[6]); notes != "-" {
			row[6] = notes
		}
	}

	return row, nil
}
