package query

import (
	"regexp"
	"strings"

	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"go.uber.org/zap"
)

// AllColumns searches the space-joined values of the whole row.
const AllColumns = -1

// Options describes one row search.
type Options struct {
	Column        int    `json:"column" yaml:"column"`
	Text          string `json:"text" yaml:"text"`
	Regex         bool   `json:"regex" yaml:"regex"`
	WholeWord     bool   `json:"wholeWord" yaml:"wholeWord"`
	CaseSensitive bool   `json:"caseSensitive" yaml:"caseSensitive"`
}

// Terms splits the search text into independent terms. Text wrapped in
// double quotes is a single phrase.
func Terms(text string) []string {
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		phrase := text[1 : len(text)-1]
		if phrase == "" {
			return nil
		}
		return []string{phrase}
	}
	return strings.Fields(text)
}

// Search returns the ascending indices of the records of rs matching opts.
func Search(rs *model.RecordSet, opts Options) []int {
	if rs.Len() == 0 {
		return nil
	}
	return Filter(rs.Rows(), opts)
}

// Filter returns the ascending indices of rows matching opts. A row matches
// when every term is found in the target text. Empty search text matches
// every row; an invalid regex term matches none.
func Filter(rows []model.Record, opts Options) []int {
	terms := Terms(opts.Text)
	if len(terms) == 0 {
		all := make([]int, len(rows))
		for i := range all {
			all[i] = i
		}
		return all
	}

	match, ok := newMatcher(terms, opts)
	if !ok {
		return nil
	}

	var result []int
	for i, row := range rows {
		if match(target(row, opts.Column)) {
			result = append(result, i)
		}
	}
	return result
}

func target(row model.Record, column int) string {
	if column == AllColumns {
		return strings.Join(row, " ")
	}
	if column < 0 || column >= len(row) {
		return ""
	}
	return row[column]
}

// newMatcher builds the row test for terms. It reports false if a regex
// term does not compile.
func newMatcher(terms []string, opts Options) (func(string) bool, bool) {
	if opts.Regex {
		patterns := make([]*regexp.Regexp, len(terms))
		for i, term := range terms {
			expr := term
			if opts.WholeWord {
				expr = `\b(?:` + expr + `)\b`
			}
			if !opts.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				logger.Debugz("invalid search pattern", zap.String("term", term), zap.Error(err))
				return nil, false
			}
			patterns[i] = re
		}
		return func(s string) bool {
			for _, re := range patterns {
				if !re.MatchString(s) {
					return false
				}
			}
			return true
		}, true
	}

	if !opts.CaseSensitive {
		lowered := make([]string, len(terms))
		for i, term := range terms {
			lowered[i] = strings.ToLower(term)
		}
		terms = lowered
	}
	return func(s string) bool {
		if !opts.CaseSensitive {
			s = strings.ToLower(s)
		}
		for _, term := range terms {
			if opts.WholeWord {
				if !containsWord(s, term) {
					return false
				}
			} else if !strings.Contains(s, term) {
				return false
			}
		}
		return true
	}, true
}

// containsWord reports whether term occurs in s delimited by spaces or
// line boundaries on both sides.
func containsWord(s, term string) bool {
	if term == "" {
		return true
	}
	for from := 0; from <= len(s)-len(term); {
		idx := strings.Index(s[from:], term)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(term)
		if isBoundary(s, start-1) && isBoundary(s, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	return s[i] == ' ' || s[i] == '\n'
}
