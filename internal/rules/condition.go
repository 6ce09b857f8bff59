package rules

import (
	"regexp"
	"strings"

	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"go.uber.org/zap"
)

// Operation is the test a Condition applies to a column value.
type Operation string

const (
	Contains   Operation = "contains"
	Equals     Operation = "equals"
	StartsWith Operation = "startsWith"
	EndsWith   Operation = "endsWith"
	RegexMatch Operation = "regexMatch"
)

// validOperations is the set of allowed operations for validation.
var validOperations = map[Operation]bool{
	Contains: true, Equals: true, StartsWith: true, EndsWith: true, RegexMatch: true,
}

// ValidOperation reports whether op is a known operation.
func ValidOperation(op Operation) bool {
	return validOperations[op]
}

// Condition is an atomic test of one column against a literal text.
// For RegexMatch the text is used directly as an unanchored pattern;
// it is not escaped.
type Condition struct {
	Column    string    `json:"Column" yaml:"Column"`
	Operation Operation `json:"Operation" yaml:"Operation"`
	Text      string    `json:"Text" yaml:"Text"`
}

// ConditionGroup is satisfied iff all of its conditions are satisfied.
// An empty group is satisfied.
type ConditionGroup []Condition

// Guard is satisfied iff any of its groups is satisfied.
// An empty guard is never satisfied.
type Guard []ConditionGroup

// Columns returns the column names referenced by the guard, in order of
// first appearance.
func (g Guard) Columns() []string {
	seen := make(map[string]bool)
	var result []string
	for _, group := range g {
		for _, c := range group {
			if !seen[c.Column] {
				seen[c.Column] = true
				result = append(result, c.Column)
			}
		}
	}
	return result
}

func (g Guard) clone() Guard {
	if g == nil {
		return nil
	}
	out := make(Guard, len(g))
	for i, group := range g {
		out[i] = append(ConditionGroup(nil), group...)
	}
	return out
}

// renameColumn rewrites references to old in place. g must be owned by the caller.
func (g Guard) renameColumn(old, new string) {
	for _, group := range g {
		for i := range group {
			if group[i].Column == old {
				group[i].Column = new
			}
		}
	}
}

// Evaluator tests conditions against the records of one RecordSet.
// It caches compiled patterns for the duration of one evaluation pass and
// must not be shared between passes or goroutines.
type Evaluator struct {
	rs      *model.RecordSet
	regexps map[string]*regexp.Regexp
}

// NewEvaluator creates an Evaluator over rs.
func NewEvaluator(rs *model.RecordSet) *Evaluator {
	return &Evaluator{rs: rs, regexps: make(map[string]*regexp.Regexp)}
}

// Condition evaluates c against record row. A missing column reads as the
// empty string; a malformed pattern fails the condition.
func (e *Evaluator) Condition(c Condition, row int) bool {
	value := e.rs.Value(row, c.Column)

	switch c.Operation {
	case Contains:
		return strings.Contains(value, c.Text)
	case Equals:
		return value == c.Text
	case StartsWith:
		return strings.HasPrefix(value, c.Text)
	case EndsWith:
		return strings.HasSuffix(value, c.Text)
	case RegexMatch:
		re := e.compile(c.Text)
		return re != nil && re.MatchString(value)
	default:
		return false
	}
}

// Group evaluates an AND of conditions.
func (e *Evaluator) Group(g ConditionGroup, row int) bool {
	for _, c := range g {
		if !e.Condition(c, row) {
			return false
		}
	}
	return true
}

// Guard evaluates an OR of condition groups.
func (e *Evaluator) Guard(g Guard, row int) bool {
	for _, group := range g {
		if e.Group(group, row) {
			return true
		}
	}
	return false
}

// compile returns the cached pattern, or nil if it does not compile.
func (e *Evaluator) compile(pattern string) *regexp.Regexp {
	if re, ok := e.regexps[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Debugz("invalid regexMatch pattern", zap.String("pattern", pattern), zap.Error(err))
		re = nil
	}
	e.regexps[pattern] = re
	return re
}
