package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRawMismatch is returned when a record's serialization cannot be found
// in the raw text it was supposedly parsed from.
var ErrRawMismatch = errors.New("record not found in raw text")

// Span is a half-open byte range [Start, End) in the raw text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RecordSet is an immutable set of records together with the raw text they
// were parsed from and a boundary table mapping each record to its span in
// that text. Methods that change columns return a new RecordSet; the raw
// text and the boundary table are shared and never modified.
type RecordSet struct {
	headers []Header
	rows    []Record
	index   map[string]int
	raw     string
	layout  Layout
	bounds  []Span
}

// NewRecordSet builds a record set and renders its raw text with DefaultLayout.
func NewRecordSet(headers []Header, rows []Record) *RecordSet {
	rs := newRecordSet(headers, rows, DefaultLayout)
	rs.raw, rs.bounds = rs.layout.RenderAll(rs.headers, rs.rows)
	return rs
}

// NewRecordSetFromRaw builds a record set over existing raw text. Each
// record's serialization is located in order, starting after the previous
// record. Returns ErrRawMismatch if a record cannot be found.
func NewRecordSetFromRaw(headers []Header, rows []Record, raw string) (*RecordSet, error) {
	rs := newRecordSet(headers, rows, DefaultLayout)
	rs.raw = raw
	rs.bounds = make([]Span, len(rs.rows))

	esc := rs.layout.escaper()
	cursor := 0
	for i, row := range rs.rows {
		var sb strings.Builder
		rs.layout.render(&sb, esc, rs.headers, row)
		s := sb.String()

		idx := strings.Index(raw[cursor:], s)
		if idx < 0 {
			return nil, fmt.Errorf("record %d: %w", i, ErrRawMismatch)
		}
		start := cursor + idx
		rs.bounds[i] = Span{Start: start, End: start + len(s)}
		cursor = start + len(s)
	}
	return rs, nil
}

func newRecordSet(headers []Header, rows []Record, layout Layout) *RecordSet {
	rs := &RecordSet{
		headers: append([]Header(nil), headers...),
		rows:    make([]Record, len(rows)),
		layout:  layout,
	}
	for i, row := range rows {
		r := make(Record, len(headers))
		copy(r, row)
		rs.rows[i] = r
	}
	rs.buildIndex()
	return rs
}

func (rs *RecordSet) buildIndex() {
	rs.index = make(map[string]int, len(rs.headers))
	for i, h := range rs.headers {
		if _, dup := rs.index[h.Name]; !dup {
			rs.index[h.Name] = i
		}
	}
}

// Len returns the number of records.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rows)
}

// Headers returns a copy of the column definitions.
func (rs *RecordSet) Headers() []Header {
	return append([]Header(nil), rs.headers...)
}

// SourceHeaders returns the columns that appear in the raw text.
func (rs *RecordSet) SourceHeaders() []Header {
	var out []Header
	for _, h := range rs.headers {
		if !h.Derived {
			out = append(out, h)
		}
	}
	return out
}

// Row returns record i. The returned slice must not be modified.
func (rs *RecordSet) Row(i int) Record {
	return rs.rows[i]
}

// Rows returns all records. The returned slices must not be modified.
func (rs *RecordSet) Rows() []Record {
	return rs.rows
}

// Raw returns the raw text.
func (rs *RecordSet) Raw() string {
	return rs.raw
}

// Layout returns the serialization layout of the raw text.
func (rs *RecordSet) Layout() Layout {
	return rs.layout
}

// Bounds returns the span of record i in the raw text.
func (rs *RecordSet) Bounds(i int) Span {
	return rs.bounds[i]
}

// ColumnIndex returns the index of the named column, or -1.
func (rs *RecordSet) ColumnIndex(name string) int {
	if i, ok := rs.index[name]; ok {
		return i
	}
	return -1
}

// Value returns the value of the named column in record row.
// A missing column yields the empty string.
func (rs *RecordSet) Value(row int, name string) string {
	return safeIndex(rs.rows[row], rs.ColumnIndex(name))
}

// Column returns all values of the named column, or nil if it does not exist.
func (rs *RecordSet) Column(name string) []string {
	idx := rs.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(rs.rows))
	for i, row := range rs.rows {
		out[i] = row[idx]
	}
	return out
}

// RecordStartingAt returns the record whose span starts exactly at off.
func (rs *RecordSet) RecordStartingAt(off int) (int, bool) {
	i := sort.Search(len(rs.bounds), func(i int) bool { return rs.bounds[i].Start >= off })
	if i < len(rs.bounds) && rs.bounds[i].Start == off {
		return i, true
	}
	return -1, false
}

// RecordEndingAt returns the record whose span ends exactly at off.
func (rs *RecordSet) RecordEndingAt(off int) (int, bool) {
	i := sort.Search(len(rs.bounds), func(i int) bool { return rs.bounds[i].End >= off })
	if i < len(rs.bounds) && rs.bounds[i].End == off {
		return i, true
	}
	return -1, false
}

// RecordAt returns the record whose span encloses off.
func (rs *RecordSet) RecordAt(off int) (int, bool) {
	i := sort.Search(len(rs.bounds), func(i int) bool { return rs.bounds[i].End > off })
	if i < len(rs.bounds) && rs.bounds[i].Start <= off {
		return i, true
	}
	return -1, false
}

// WithColumn returns a record set with a derived column added. If a derived
// column with the same name exists it is replaced. values must be row-aligned.
func (rs *RecordSet) WithColumn(name string, typ HeaderType, values []string) *RecordSet {
	h := Header{Name: name, Type: typ, Derived: true}
	idx := -1
	for i, existing := range rs.headers {
		if existing.Derived && existing.Name == name {
			idx = i
			break
		}
	}

	out := rs.shallowCopy()
	if idx < 0 {
		out.headers = append(out.headers, h)
		idx = len(out.headers) - 1
	} else {
		out.headers[idx] = h
	}

	out.rows = make([]Record, len(rs.rows))
	for i, row := range rs.rows {
		r := make(Record, len(out.headers))
		copy(r, row)
		if i < len(values) {
			r[idx] = values[i]
		}
		out.rows[i] = r
	}
	out.buildIndex()
	return out
}

// WithoutDerived returns a record set containing only the source columns.
func (rs *RecordSet) WithoutDerived() *RecordSet {
	var keep []int
	for i, h := range rs.headers {
		if !h.Derived {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(rs.headers) {
		return rs
	}

	out := rs.shallowCopy()
	out.headers = make([]Header, len(keep))
	for j, i := range keep {
		out.headers[j] = rs.headers[i]
	}
	out.rows = make([]Record, len(rs.rows))
	for r, row := range rs.rows {
		rec := make(Record, len(keep))
		for j, i := range keep {
			rec[j] = row[i]
		}
		out.rows[r] = rec
	}
	out.buildIndex()
	return out
}

func (rs *RecordSet) shallowCopy() *RecordSet {
	return &RecordSet{
		headers: append([]Header(nil), rs.headers...),
		rows:    rs.rows,
		raw:     rs.raw,
		layout:  rs.layout,
		bounds:  rs.bounds,
	}
}
