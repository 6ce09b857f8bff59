package model

import "strings"

// Layout describes how a record is serialized into the raw log text:
//
//	{"name": "value", "name2": "value2"}
//
// Records are joined by RecordSep. Names and values are escaped so that a
// serialized record never contains the record separator.
type Layout struct {
	Open        string
	Close       string
	FieldSep    string
	KeyValueSep string
	Quote       string
	RecordSep   string
}

// DefaultLayout is the serialization used by every ingested record set.
var DefaultLayout = Layout{
	Open:        "{",
	Close:       "}",
	FieldSep:    ", ",
	KeyValueSep: ": ",
	Quote:       `"`,
	RecordSep:   "\n",
}

var defaultEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func (l Layout) escaper() *strings.Replacer {
	if l.Quote == `"` || l.Quote == "" {
		return defaultEscaper
	}
	return strings.NewReplacer(
		`\`, `\\`,
		l.Quote, `\`+l.Quote,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
}

// Escape returns s as it appears inside a quoted name or value slot.
// Escaping is per character, so escaping the parts of a string and
// concatenating them equals escaping the whole string.
func (l Layout) Escape(s string) string {
	return l.escaper().Replace(s)
}

// Render serializes one record. Derived columns are skipped.
func (l Layout) Render(headers []Header, row Record) string {
	var sb strings.Builder
	l.render(&sb, l.escaper(), headers, row)
	return sb.String()
}

func (l Layout) render(sb *strings.Builder, esc *strings.Replacer, headers []Header, row Record) {
	sb.WriteString(l.Open)
	first := true
	for i, h := range headers {
		if h.Derived {
			continue
		}
		if !first {
			sb.WriteString(l.FieldSep)
		}
		first = false
		sb.WriteString(l.Quote)
		sb.WriteString(esc.Replace(h.Name))
		sb.WriteString(l.Quote)
		sb.WriteString(l.KeyValueSep)
		sb.WriteString(l.Quote)
		sb.WriteString(esc.Replace(safeIndex(row, i)))
		sb.WriteString(l.Quote)
	}
	sb.WriteString(l.Close)
}

// RenderAll serializes every record, joined by RecordSep, and returns the
// text together with each record's span in it.
func (l Layout) RenderAll(headers []Header, rows []Record) (string, []Span) {
	var sb strings.Builder
	esc := l.escaper()
	spans := make([]Span, len(rows))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(l.RecordSep)
		}
		start := sb.Len()
		l.render(&sb, esc, headers, row)
		spans[i] = Span{Start: start, End: sb.Len()}
	}
	return sb.String(), spans
}
