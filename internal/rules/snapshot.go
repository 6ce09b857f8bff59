package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cdtdelta/logweave/internal/model"
	"gopkg.in/yaml.v3"
)

// ruleSnapshot is the flat, serializable shape of a Rule. Type-specific
// fields are left empty for the other variant.
type ruleSnapshot struct {
	Column            string           `json:"column" yaml:"column"`
	Type              Kind             `json:"type" yaml:"type"`
	Description       string           `json:"description" yaml:"description"`
	DefaultValue      string           `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	FlagType          model.HeaderType `json:"flagType,omitempty" yaml:"flagType,omitempty"`
	Flags             []Flag           `json:"flags,omitempty" yaml:"flags,omitempty"`
	InitialStateIndex *int             `json:"initialStateIndex,omitempty" yaml:"initialStateIndex,omitempty"`
	States            []State          `json:"states,omitempty" yaml:"states,omitempty"`
}

func (r Rule) snapshot() ruleSnapshot {
	s := ruleSnapshot{Column: r.Column, Description: r.Description}
	switch b := r.Body.(type) {
	case *FlagRule:
		s.Type = FlagKind
		s.DefaultValue = b.DefaultValue
		s.FlagType = b.headerType()
		s.Flags = b.Flags
	case *StateRule:
		s.Type = StateKind
		initial := b.Initial
		s.InitialStateIndex = &initial
		s.States = b.States
	}
	return s
}

func (s ruleSnapshot) rule() (Rule, error) {
	r := Rule{Column: s.Column, Description: s.Description}
	switch s.Type {
	case FlagKind:
		r.Body = &FlagRule{DefaultValue: s.DefaultValue, FlagType: s.FlagType, Flags: s.Flags}
	case StateKind:
		sr := &StateRule{States: s.States}
		if s.InitialStateIndex != nil {
			sr.Initial = *s.InitialStateIndex
		}
		r.Body = sr
	default:
		return Rule{}, fmt.Errorf("rule %q: unknown type %q: %w", s.Column, s.Type, ErrInvalidRule)
	}
	return r, nil
}

// MarshalJSON encodes the rule as a flat snapshot.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.snapshot())
}

// UnmarshalJSON decodes a flat snapshot.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var s ruleSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := s.rule()
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// MarshalYAML encodes the rule as a flat snapshot.
func (r Rule) MarshalYAML() (interface{}, error) {
	return r.snapshot(), nil
}

// UnmarshalYAML decodes a flat snapshot.
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var s ruleSnapshot
	if err := value.Decode(&s); err != nil {
		return err
	}
	decoded, err := s.rule()
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// Format selects the snapshot encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension. Unknown
// extensions are treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Decode parses and validates a rule set snapshot.
func Decode(data []byte, format Format) (RuleSet, error) {
	var set RuleSet
	var err error
	if format == YAML {
		err = yaml.Unmarshal(data, &set)
	} else {
		err = json.Unmarshal(data, &set)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Encode serializes a rule set snapshot.
func Encode(set RuleSet, format Format) ([]byte, error) {
	if set == nil {
		set = RuleSet{}
	}
	if format == YAML {
		return yaml.Marshal(set)
	}
	return json.MarshalIndent(set, "", "  ")
}

// ReadFile loads a rule set from a JSON or YAML file.
func ReadFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return Decode(data, FormatForPath(path))
}

// WriteFile saves a rule set to a JSON or YAML file.
func WriteFile(path string, set RuleSet) error {
	data, err := Encode(set, FormatForPath(path))
	if err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}
