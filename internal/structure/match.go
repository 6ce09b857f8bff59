package structure

import (
	"regexp"

	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"go.uber.org/zap"
)

// Range is an inclusive span of record indices.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of records in the range.
func (r Range) Len() int {
	return r.End - r.Start + 1
}

// Match scans the raw text of rs for non-overlapping occurrences of pattern
// and maps each one to the records it covers. Occurrences that do not start
// exactly at a record start and end exactly at a record end are discarded.
// An empty or malformed pattern yields no ranges.
func Match(pattern string, rs *model.RecordSet) []Range {
	if pattern == "" || rs.Len() == 0 {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Debugz("structure pattern does not compile", zap.Error(err))
		return nil
	}

	var ranges []Range
	for _, loc := range re.FindAllStringIndex(rs.Raw(), -1) {
		start, ok := rs.RecordStartingAt(loc[0])
		if !ok {
			continue
		}
		end, ok := rs.RecordEndingAt(loc[1])
		if !ok || end < start {
			continue
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	logger.Debugz("structure scan finished", zap.Int("matches", len(ranges)))
	return ranges
}

// Find compiles d against the layout of rs and returns its matches.
func Find(d Definition, rs *model.RecordSet) []Range {
	return Match(Compile(d, rs.Layout()), rs)
}
