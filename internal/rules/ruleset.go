package rules

import (
	"fmt"

	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"go.uber.org/zap"
)

// RuleSet is an ordered list of rules. Rules are applied in order, so a
// rule may read the derived columns of the rules before it.
type RuleSet []Rule

// Validate checks that every rule can be evaluated: unique non-empty output
// columns, known operations, and state indices in range.
func (s RuleSet) Validate() error {
	seen := make(map[string]bool)
	for i, r := range s {
		if r.Column == "" {
			return fmt.Errorf("rule %d: empty column name: %w", i, ErrInvalidRule)
		}
		if seen[r.Column] {
			return fmt.Errorf("rule %d: duplicate column %q: %w", i, r.Column, ErrInvalidRule)
		}
		seen[r.Column] = true

		if r.Body == nil {
			return fmt.Errorf("rule %q: missing body: %w", r.Column, ErrInvalidRule)
		}
		for _, g := range r.Body.guards() {
			for _, group := range g {
				for _, c := range group {
					if !ValidOperation(c.Operation) {
						return fmt.Errorf("rule %q: unknown operation %q: %w", r.Column, c.Operation, ErrInvalidRule)
					}
				}
			}
		}

		if sr, ok := r.Body.(*StateRule); ok {
			if err := sr.validate(); err != nil {
				return fmt.Errorf("rule %q: %w", r.Column, err)
			}
		}
	}
	return nil
}

func (s *StateRule) validate() error {
	if len(s.States) == 0 {
		return nil
	}
	if s.Initial < 0 || s.Initial >= len(s.States) {
		return fmt.Errorf("initial state %d out of range: %w", s.Initial, ErrInvalidRule)
	}
	for i, st := range s.States {
		for j, t := range st.Transitions {
			if t.Target < 0 || t.Target >= len(s.States) {
				return fmt.Errorf("state %d transition %d: target %d out of range: %w", i, j, t.Target, ErrInvalidRule)
			}
		}
	}
	return nil
}

// Index returns the position of the rule producing column, or -1.
func (s RuleSet) Index(column string) int {
	for i, r := range s {
		if r.Column == column {
			return i
		}
	}
	return -1
}

// Referencing returns the positions of rules whose conditions read column.
func (s RuleSet) Referencing(column string) []int {
	var out []int
	for i, r := range s {
		for _, c := range r.Columns() {
			if c == column {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Apply evaluates every rule over rs and returns a record set holding the
// source columns plus one derived column per rule. Existing derived columns
// of rs are discarded first.
func (s RuleSet) Apply(rs *model.RecordSet) *model.RecordSet {
	out := rs.WithoutDerived()
	for _, r := range s {
		if idx := out.ColumnIndex(r.Column); idx >= 0 && !out.Headers()[idx].Derived {
			logger.Warnz("rule column shadows a source column",
				zap.String("column", r.Column))
		}
		typ := model.Text
		if r.Body != nil {
			typ = r.Body.headerType()
		}
		out = out.WithColumn(r.Column, typ, r.Evaluate(out))
	}
	return out
}

// RenameColumn renames the output column of the rule producing old and
// rewrites every condition, in every rule, that references old. The receiver
// is not modified.
func (s RuleSet) RenameColumn(old, new string) (RuleSet, error) {
	idx := s.Index(old)
	if idx < 0 {
		return nil, fmt.Errorf("no rule produces column %q", old)
	}
	if new == "" {
		return nil, fmt.Errorf("renaming %q: empty column name: %w", old, ErrInvalidRule)
	}
	if new != old && s.Index(new) >= 0 {
		return nil, fmt.Errorf("renaming %q: column %q already exists: %w", old, new, ErrInvalidRule)
	}

	out := make(RuleSet, len(s))
	for i, r := range s {
		out[i] = r.clone()
		if out[i].Body != nil {
			for _, g := range out[i].Body.guards() {
				g.renameColumn(old, new)
			}
		}
	}
	out[idx].Column = new
	return out, nil
}

// Clone returns a deep copy of the rule set.
func (s RuleSet) Clone() RuleSet {
	if s == nil {
		return nil
	}
	out := make(RuleSet, len(s))
	for i, r := range s {
		out[i] = r.clone()
	}
	return out
}
