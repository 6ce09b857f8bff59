package structure

import (
	"fmt"
	"unicode/utf8"

	"github.com/cdtdelta/logweave/internal/model"
)

// AddEntry appends record i of rs as a new example entry. Every cell starts
// selected and holds the record's value as a single literal segment. The
// previous last entry is linked to the new one with DefaultLink, or
// LinkNone when no default is set.
func (d Definition) AddEntry(rs *model.RecordSet, i int) (Definition, error) {
	if i < 0 || i >= rs.Len() {
		return d, fmt.Errorf("record %d: %w", i, ErrIndex)
	}

	headers := rs.SourceHeaders()
	if len(d.Entries) > 0 && !sameColumns(d.Headers, headers) {
		return d, ErrHeaderMismatch
	}

	entry := Entry{
		Record:    i,
		Cells:     make([][]Segment, len(headers)),
		Selected:  make([]bool, len(headers)),
		Wildcards: make([][]string, len(headers)),
	}
	for c, h := range headers {
		entry.Cells[c] = []Segment{{Index: 0, Text: rs.Value(i, h.Name)}}
		entry.Selected[c] = true
	}

	out := d.clone()
	if len(out.Entries) == 0 {
		out.Headers = headers
	} else {
		link := d.DefaultLink
		if !validLink(link) {
			link = LinkNone
		}
		out.Entries[len(out.Entries)-1].Link = link
	}
	out.Entries = append(out.Entries, entry)
	return out, nil
}

// Fits returns ErrHeaderMismatch when d has entries and rs's source columns
// differ from the columns d was built on.
func (d Definition) Fits(rs *model.RecordSet) error {
	if len(d.Entries) > 0 && !sameColumns(d.Headers, rs.SourceHeaders()) {
		return ErrHeaderMismatch
	}
	return nil
}

func sameColumns(a, b []model.Header) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

// RemoveEntry deletes entry e. Wildcards referenced only by e are dropped
// and references to later entries are shifted down by one. If e was the
// last entry, the new last entry loses its link.
func (d Definition) RemoveEntry(e int) (Definition, error) {
	if e < 0 || e >= len(d.Entries) {
		return d, fmt.Errorf("entry %d: %w", e, ErrIndex)
	}

	kept, _ := DeleteEntryWildcards(d.Wildcards, e)
	for i := range kept {
		for j := range kept[i].Refs {
			if kept[i].Refs[j].Entry > e {
				kept[i].Refs[j].Entry--
			}
		}
	}

	out := d
	out.Entries = make([]Entry, 0, len(d.Entries)-1)
	out.Entries = append(out.Entries, d.Entries[:e]...)
	out.Entries = append(out.Entries, d.Entries[e+1:]...)
	out.Wildcards = kept
	if n := len(out.Entries); n > 0 {
		out.Entries[n-1].Link = Unlinked
	} else {
		out.Headers = nil
	}
	return out, nil
}

// DeleteEntryWildcards drops every reference into entry e. It returns the
// wildcards that still have references elsewhere and those that were left
// with none. Reference indices are not renumbered, and the input is not
// modified.
func DeleteEntryWildcards(wildcards []Wildcard, e int) (kept, deleted []Wildcard) {
	for _, w := range wildcards {
		var refs []Ref
		for _, r := range w.Refs {
			if r.Entry != e {
				refs = append(refs, r)
			}
		}
		if len(refs) == 0 {
			deleted = append(deleted, Wildcard{ID: w.ID, Refs: append([]Ref(nil), w.Refs...)})
			continue
		}
		kept = append(kept, Wildcard{ID: w.ID, Refs: refs})
	}
	return kept, deleted
}

// ToggleCell flips whether cell c of entry e must match its example text.
func (d Definition) ToggleCell(e, c int) (Definition, error) {
	if err := d.checkCell(e, c); err != nil {
		return d, err
	}
	out := d.clone()
	entry := &out.Entries[e]
	entry.Selected = append([]bool(nil), entry.Selected...)
	entry.Selected[c] = !entry.Selected[c]
	return out, nil
}

// SetLink sets the gap allowed between entry e and the next entry.
func (d Definition) SetLink(e int, link Link) (Definition, error) {
	if e < 0 || e >= len(d.Entries) {
		return d, fmt.Errorf("entry %d: %w", e, ErrIndex)
	}
	if e == len(d.Entries)-1 {
		if link == Unlinked {
			return d, nil
		}
		return d, ErrLinkOnLast
	}
	if !validLink(link) {
		return d, fmt.Errorf("%q: %w", link, ErrInvalidLink)
	}
	out := d.clone()
	out.Entries[e].Link = link
	return out, nil
}

// Clear removes every entry and wildcard.
func (d Definition) Clear() Definition {
	return Definition{DefaultLink: d.DefaultLink}
}

// InsertWildcard turns bytes [start, end) of segment s in cell c of entry e
// into a wildcard labelled id. The segment is split into the leading text,
// the wildcard and the trailing text; empty parts are omitted.
func (d Definition) InsertWildcard(e, c, s, start, end int, id string) (Definition, error) {
	if err := d.checkSegment(e, c, s); err != nil {
		return d, err
	}
	if id == "" {
		return d, fmt.Errorf("empty wildcard id: %w", ErrIndex)
	}
	seg := d.Entries[e].Cells[c][s]
	if seg.IsWildcard() {
		return d, fmt.Errorf("entry %d cell %d segment %d: %w", e, c, s, ErrNotLiteral)
	}
	if start < 0 || end > len(seg.Text) || start >= end {
		return d, fmt.Errorf("range [%d, %d) in %d bytes: %w", start, end, len(seg.Text), ErrIndex)
	}
	if !runeBoundary(seg.Text, start) || !runeBoundary(seg.Text, end) {
		return d, fmt.Errorf("range [%d, %d) splits a character: %w", start, end, ErrIndex)
	}

	var parts []Segment
	if start > 0 {
		parts = append(parts, Segment{Text: seg.Text[:start]})
	}
	parts = append(parts, Segment{Text: seg.Text[start:end], Wildcard: id})
	if end < len(seg.Text) {
		parts = append(parts, Segment{Text: seg.Text[end:]})
	}

	return d.replaceSegments(e, c, s, s+1, parts), nil
}

// runeBoundary reports whether byte offset i starts a character of s or is
// its end.
func runeBoundary(s string, i int) bool {
	return i == len(s) || utf8.RuneStart(s[i])
}

// RemoveWildcard turns wildcard segment s of cell c of entry e back into
// literal text, merging it into its literal neighbours. Wildcard
// neighbours are never merged with: if neither neighbour is literal the
// segment stays in place as a literal.
func (d Definition) RemoveWildcard(e, c, s int) (Definition, error) {
	if err := d.checkSegment(e, c, s); err != nil {
		return d, err
	}
	cell := d.Entries[e].Cells[c]
	seg := cell[s]
	if !seg.IsWildcard() {
		return d, fmt.Errorf("entry %d cell %d segment %d: %w", e, c, s, ErrNotWildcard)
	}

	from, to := s, s+1
	text := seg.Text
	if s > 0 && !cell[s-1].IsWildcard() {
		from = s - 1
		text = cell[s-1].Text + text
	}
	if s+1 < len(cell) && !cell[s+1].IsWildcard() {
		to = s + 2
		text += cell[s+1].Text
	}

	return d.replaceSegments(e, c, from, to, []Segment{{Text: text}}), nil
}

// replaceSegments splices parts in place of segments [from, to) of one cell
// and recomputes ordinals and wildcard references. Only the touched cell is
// copied.
func (d Definition) replaceSegments(e, c, from, to int, parts []Segment) Definition {
	old := d.Entries[e].Cells[c]
	cell := make([]Segment, 0, len(old)-(to-from)+len(parts))
	cell = append(cell, old[:from]...)
	cell = append(cell, parts...)
	cell = append(cell, old[to:]...)
	for i := range cell {
		cell[i].Index = i
	}

	out := d.clone()
	entry := &out.Entries[e]
	entry.Cells = append([][]Segment(nil), entry.Cells...)
	entry.Cells[c] = cell
	out.reindex()
	return out
}

// reindex rebuilds every wildcard reference and per-cell wildcard list by
// scanning the segments. Existing wildcards keep their order; new ids are
// appended in scan order.
func (d *Definition) reindex() {
	refs := make(map[string][]Ref)
	var order []string
	for _, w := range d.Wildcards {
		order = append(order, w.ID)
		refs[w.ID] = nil
	}

	for e := range d.Entries {
		entry := &d.Entries[e]
		lists := make([][]string, len(entry.Cells))
		for c, cell := range entry.Cells {
			for s, seg := range cell {
				if !seg.IsWildcard() {
					continue
				}
				lists[c] = append(lists[c], seg.Wildcard)
				if _, known := refs[seg.Wildcard]; !known {
					order = append(order, seg.Wildcard)
				}
				refs[seg.Wildcard] = append(refs[seg.Wildcard], Ref{Entry: e, Cell: c, Segment: s})
			}
		}
		entry.Wildcards = lists
	}

	d.Wildcards = nil
	for _, id := range order {
		if len(refs[id]) > 0 {
			d.Wildcards = append(d.Wildcards, Wildcard{ID: id, Refs: refs[id]})
		}
	}
}

// clone copies the entry slice. Cells, selections and wildcard lists are
// still shared and must be copied before they are modified.
func (d Definition) clone() Definition {
	out := d
	out.Entries = append([]Entry(nil), d.Entries...)
	out.Wildcards = append([]Wildcard(nil), d.Wildcards...)
	return out
}

func (d Definition) checkCell(e, c int) error {
	if e < 0 || e >= len(d.Entries) {
		return fmt.Errorf("entry %d: %w", e, ErrIndex)
	}
	if c < 0 || c >= len(d.Entries[e].Cells) {
		return fmt.Errorf("entry %d cell %d: %w", e, c, ErrIndex)
	}
	return nil
}

func (d Definition) checkSegment(e, c, s int) error {
	if err := d.checkCell(e, c); err != nil {
		return err
	}
	if s < 0 || s >= len(d.Entries[e].Cells[c]) {
		return fmt.Errorf("entry %d cell %d segment %d: %w", e, c, s, ErrIndex)
	}
	return nil
}
