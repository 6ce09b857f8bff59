package rules

import (
	"errors"

	"github.com/cdtdelta/logweave/internal/model"
)

// ErrInvalidRule is returned by validation for rules that cannot be evaluated.
var ErrInvalidRule = errors.New("invalid rule")

// Kind identifies a rule variant in snapshots.
type Kind string

const (
	FlagKind  Kind = "FlagRule"
	StateKind Kind = "StateBasedRule"
)

// Body is the variant part of a Rule. It is implemented only by *FlagRule
// and *StateRule.
type Body interface {
	Kind() Kind
	evaluate(e *Evaluator) []string
	headerType() model.HeaderType
	guards() []Guard
	clone() Body
}

// Rule produces one derived column.
type Rule struct {
	Column      string
	Description string
	Body        Body
}

// Evaluate returns one value per record of rs.
func (r Rule) Evaluate(rs *model.RecordSet) []string {
	if r.Body == nil {
		return make([]string, rs.Len())
	}
	return r.Body.evaluate(NewEvaluator(rs))
}

// Columns returns the column names referenced by the rule's conditions.
func (r Rule) Columns() []string {
	if r.Body == nil {
		return nil
	}
	seen := make(map[string]bool)
	var result []string
	for _, g := range r.Body.guards() {
		for _, c := range g.Columns() {
			if !seen[c] {
				seen[c] = true
				result = append(result, c)
			}
		}
	}
	return result
}

func (r Rule) clone() Rule {
	out := r
	if r.Body != nil {
		out.Body = r.Body.clone()
	}
	return out
}

// Flag is a named classification outcome.
type Flag struct {
	Name       string `json:"name" yaml:"name"`
	Conditions Guard  `json:"conditions" yaml:"conditions"`
}

// FlagRule classifies each record independently: the first flag whose guard
// holds names the record, otherwise DefaultValue applies.
type FlagRule struct {
	DefaultValue string
	FlagType     model.HeaderType
	Flags        []Flag
}

func (f *FlagRule) Kind() Kind { return FlagKind }

// Evaluate returns one value per record of rs.
func (f *FlagRule) Evaluate(rs *model.RecordSet) []string {
	return f.evaluate(NewEvaluator(rs))
}

func (f *FlagRule) evaluate(e *Evaluator) []string {
	out := make([]string, e.rs.Len())
	for row := range out {
		out[row] = f.DefaultValue
		for _, flag := range f.Flags {
			if e.Guard(flag.Conditions, row) {
				out[row] = flag.Name
				break
			}
		}
	}
	return out
}

func (f *FlagRule) headerType() model.HeaderType {
	if f.FlagType == model.Number {
		return model.Number
	}
	return model.Text
}

func (f *FlagRule) guards() []Guard {
	out := make([]Guard, len(f.Flags))
	for i, flag := range f.Flags {
		out[i] = flag.Conditions
	}
	return out
}

func (f *FlagRule) clone() Body {
	out := *f
	out.Flags = make([]Flag, len(f.Flags))
	for i, flag := range f.Flags {
		out.Flags[i] = Flag{Name: flag.Name, Conditions: flag.Conditions.clone()}
	}
	return &out
}

// Transition moves the automaton to Target when its guard holds.
type Transition struct {
	Target     int   `json:"targetStateIndex" yaml:"targetStateIndex"`
	Conditions Guard `json:"conditions" yaml:"conditions"`
}

// State is a node of a StateRule automaton.
type State struct {
	Name        string       `json:"name" yaml:"name"`
	Transitions []Transition `json:"transitions" yaml:"transitions"`
}

// StateRule classifies records sequentially with a finite-state machine.
// For each record the current state's transitions are tried in order; the
// first one whose guard holds is taken before the record's value is emitted.
// The value is the name of the (possibly new) current state.
type StateRule struct {
	Initial int
	States  []State
}

func (s *StateRule) Kind() Kind { return StateKind }

// Evaluate returns one value per record of rs.
func (s *StateRule) Evaluate(rs *model.RecordSet) []string {
	return s.evaluate(NewEvaluator(rs))
}

func (s *StateRule) evaluate(e *Evaluator) []string {
	out := make([]string, e.rs.Len())
	if len(s.States) == 0 {
		return out
	}

	current := s.Initial
	if current < 0 || current >= len(s.States) {
		current = 0
	}

	for row := range out {
		for _, t := range s.States[current].Transitions {
			if e.Guard(t.Conditions, row) {
				if t.Target >= 0 && t.Target < len(s.States) {
					current = t.Target
				}
				break
			}
		}
		out[row] = s.States[current].Name
	}
	return out
}

func (s *StateRule) headerType() model.HeaderType {
	return model.Text
}

func (s *StateRule) guards() []Guard {
	var out []Guard
	for _, st := range s.States {
		for _, t := range st.Transitions {
			out = append(out, t.Conditions)
		}
	}
	return out
}

func (s *StateRule) clone() Body {
	out := *s
	out.States = make([]State, len(s.States))
	for i, st := range s.States {
		ts := make([]Transition, len(st.Transitions))
		for j, t := range st.Transitions {
			ts[j] = Transition{Target: t.Target, Conditions: t.Conditions.clone()}
		}
		out.States[i] = State{Name: st.Name, Transitions: ts}
	}
	return &out
}
