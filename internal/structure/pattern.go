package structure

import (
	"regexp"
	"strings"

	"github.com/cdtdelta/logweave/internal/model"
)

const (
	// freeValue matches any quoted value body: no bare quote, backslash or
	// newline, escape pairs allowed.
	freeValue = `(?:[^"\\\n]|\\.)*`
	// wildcardValue is the lazy form of freeValue used inside a selected cell.
	wildcardValue = `(?:[^"\\\n]|\\.)*?`
	// freeTimestamp matches a free timestamp cell. Any value body is a
	// valid timestamp here, placeholders like "Not a time" included.
	freeTimestamp = `(?:[^"\\\n]|\\.)*?`
)

var linkFragments = map[Link]string{
	LinkNone: `\n`,
	LinkMin:  `(?s:.*?)`,
	LinkMax:  `(?s:.*)`,
}

// Compile builds the pattern matching d's entries in the raw text of a
// record set serialized with layout l. Each entry becomes one anchored
// record template; consecutive entries are joined by their link fragment.
// A definition with no entries compiles to the empty string.
func Compile(d Definition, l model.Layout) string {
	if len(d.Entries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("(?m)")
	for i, entry := range d.Entries {
		writeEntry(&sb, d.Headers, entry, l)
		if i < len(d.Entries)-1 {
			link := entry.Link
			if !validLink(link) {
				link = LinkNone
			}
			sb.WriteString(linkFragments[link])
		}
	}
	return sb.String()
}

func writeEntry(sb *strings.Builder, headers []model.Header, entry Entry, l model.Layout) {
	q := regexp.QuoteMeta(l.Quote)

	sb.WriteString("^")
	sb.WriteString(regexp.QuoteMeta(l.Open))
	for c, h := range headers {
		if c > 0 {
			sb.WriteString(regexp.QuoteMeta(l.FieldSep))
		}
		sb.WriteString(q)
		sb.WriteString(regexp.QuoteMeta(l.Escape(h.Name)))
		sb.WriteString(q)
		sb.WriteString(regexp.QuoteMeta(l.KeyValueSep))
		sb.WriteString(q)
		writeValue(sb, h, entry, c, l)
		sb.WriteString(q)
	}
	sb.WriteString(regexp.QuoteMeta(l.Close))
	sb.WriteString("$")
}

func writeValue(sb *strings.Builder, h model.Header, entry Entry, c int, l model.Layout) {
	if c >= len(entry.Selected) || !entry.Selected[c] {
		if model.IsTimestampField(h.Name) {
			sb.WriteString(freeTimestamp)
		} else {
			sb.WriteString(freeValue)
		}
		return
	}
	for _, seg := range entry.Cells[c] {
		if seg.IsWildcard() {
			sb.WriteString(wildcardValue)
			continue
		}
		sb.WriteString(regexp.QuoteMeta(l.Escape(seg.Text)))
	}
}
