package structure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cdtdelta/logweave/internal/model"
)

var (
	// ErrIndex is returned when an entry, cell, segment or character offset
	// is out of range.
	ErrIndex = errors.New("index out of range")
	// ErrNotWildcard is returned when removing a wildcard from a literal segment.
	ErrNotWildcard = errors.New("segment is not a wildcard")
	// ErrNotLiteral is returned when inserting a wildcard into a wildcard segment.
	ErrNotLiteral = errors.New("segment is not literal text")
	// ErrLinkOnLast is returned when setting a link on the final entry.
	ErrLinkOnLast = errors.New("last entry cannot have a link")
	// ErrInvalidLink is returned for an unknown link distance.
	ErrInvalidLink = errors.New("invalid link")
	// ErrHeaderMismatch is returned when an entry's record has different
	// source columns than the entries already in the definition.
	ErrHeaderMismatch = errors.New("record columns differ from structure columns")
)

// Link is the allowed gap between an entry and the next one.
type Link string

const (
	// Unlinked is the link of the last entry.
	Unlinked Link = ""
	// LinkNone requires the next entry to be the very next record.
	LinkNone Link = "None"
	// LinkMin accepts the smallest gap to the next entry.
	LinkMin Link = "Min"
	// LinkMax accepts the largest gap to the next entry.
	LinkMax Link = "Max"
)

// ParseLink converts a configured or user supplied name into a Link.
// Matching is case-insensitive; the empty string is Unlinked.
func ParseLink(s string) (Link, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Unlinked, nil
	case "none":
		return LinkNone, nil
	case "min":
		return LinkMin, nil
	case "max":
		return LinkMax, nil
	}
	return Unlinked, fmt.Errorf("%q: %w", s, ErrInvalidLink)
}

// Segment is a contiguous run of text inside one cell. A segment with a
// non-empty Wildcard id is a wildcard; its Text is the example text it
// replaced.
type Segment struct {
	Index    int    `json:"index" yaml:"index"`
	Text     string `json:"text" yaml:"text"`
	Wildcard string `json:"wildcard,omitempty" yaml:"wildcard,omitempty"`
}

// IsWildcard reports whether the segment is a wildcard.
func (s Segment) IsWildcard() bool {
	return s.Wildcard != ""
}

// Ref locates one wildcard segment.
type Ref struct {
	Entry   int `json:"entry" yaml:"entry"`
	Cell    int `json:"cell" yaml:"cell"`
	Segment int `json:"segment" yaml:"segment"`
}

// Wildcard is a named free variable and every segment labelled with it.
// Several references to one id do not require equal text.
type Wildcard struct {
	ID   string `json:"id" yaml:"id"`
	Refs []Ref  `json:"refs" yaml:"refs"`
}

// Entry is one annotated example record.
type Entry struct {
	Record    int         `json:"record" yaml:"record"`
	Cells     [][]Segment `json:"cells" yaml:"cells"`
	Selected  []bool      `json:"selected" yaml:"selected"`
	Wildcards [][]string  `json:"wildcards" yaml:"wildcards"`
	Link      Link        `json:"link,omitempty" yaml:"link,omitempty"`
}

// Text returns the full example text of a cell.
func (e Entry) Text(cell int) string {
	var sb strings.Builder
	for _, seg := range e.Cells[cell] {
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// Definition is an ordered sequence of example entries over a fixed set of
// source columns. It is a value: every edit returns a new Definition and
// leaves the receiver untouched.
type Definition struct {
	Headers     []model.Header `json:"headers" yaml:"headers"`
	Entries     []Entry        `json:"entries" yaml:"entries"`
	Wildcards   []Wildcard     `json:"wildcards" yaml:"wildcards"`
	DefaultLink Link           `json:"defaultLink,omitempty" yaml:"defaultLink,omitempty"`
}

// Len returns the number of entries.
func (d Definition) Len() int {
	return len(d.Entries)
}

// Wildcard returns the wildcard with the given id.
func (d Definition) Wildcard(id string) (Wildcard, bool) {
	for _, w := range d.Wildcards {
		if w.ID == id {
			return w, true
		}
	}
	return Wildcard{}, false
}

// Validate checks the structural invariants: cells aligned with headers,
// contiguous segment ordinals, no link on the last entry, and wildcard
// references that point at segments carrying their id.
func (d Definition) Validate() error {
	for e, entry := range d.Entries {
		if len(entry.Cells) != len(d.Headers) || len(entry.Selected) != len(d.Headers) {
			return fmt.Errorf("entry %d: %d cells for %d columns: %w", e, len(entry.Cells), len(d.Headers), ErrIndex)
		}
		if len(entry.Wildcards) != len(entry.Cells) {
			return fmt.Errorf("entry %d: wildcard lists not aligned with cells: %w", e, ErrIndex)
		}
		for c, cell := range entry.Cells {
			if len(cell) == 0 {
				return fmt.Errorf("entry %d cell %d: no segments: %w", e, c, ErrIndex)
			}
			var ids []string
			for s, seg := range cell {
				if seg.Index != s {
					return fmt.Errorf("entry %d cell %d: segment %d has ordinal %d: %w", e, c, s, seg.Index, ErrIndex)
				}
				if seg.IsWildcard() {
					ids = append(ids, seg.Wildcard)
				}
			}
			if strings.Join(ids, "\x00") != strings.Join(entry.Wildcards[c], "\x00") {
				return fmt.Errorf("entry %d cell %d: stale wildcard list: %w", e, c, ErrIndex)
			}
		}
		last := e == len(d.Entries)-1
		if last && entry.Link != Unlinked {
			return fmt.Errorf("entry %d: %w", e, ErrLinkOnLast)
		}
		if !last && !validLink(entry.Link) {
			return fmt.Errorf("entry %d: link %q: %w", e, entry.Link, ErrInvalidLink)
		}
	}

	for _, w := range d.Wildcards {
		if len(w.Refs) == 0 {
			return fmt.Errorf("wildcard %s: no references: %w", w.ID, ErrIndex)
		}
		for _, r := range w.Refs {
			seg, ok := d.segment(r)
			if !ok || seg.Wildcard != w.ID {
				return fmt.Errorf("wildcard %s: dangling reference %+v: %w", w.ID, r, ErrIndex)
			}
		}
	}
	return nil
}

func validLink(l Link) bool {
	return l == LinkNone || l == LinkMin || l == LinkMax
}

func (d Definition) segment(r Ref) (Segment, bool) {
	if r.Entry < 0 || r.Entry >= len(d.Entries) {
		return Segment{}, false
	}
	cells := d.Entries[r.Entry].Cells
	if r.Cell < 0 || r.Cell >= len(cells) {
		return Segment{}, false
	}
	if r.Segment < 0 || r.Segment >= len(cells[r.Cell]) {
		return Segment{}, false
	}
	return cells[r.Cell][r.Segment], true
}
