package database

import (
	"errors"

	"github.com/cdtdelta/logweave/internal/query"
	"github.com/cdtdelta/logweave/internal/rules"
	"github.com/cdtdelta/logweave/internal/structure"
)

// ErrNotFound is returned when a named snapshot does not exist.
var ErrNotFound = errors.New("not found")

// SavedSearch is a named set of search options.
type SavedSearch struct {
	Name    string        `json:"name"`
	Options query.Options `json:"options"`
}

// Store defines the interface for all database operations.
// Every method that the application needs is captured here so that
// app.go and the CLI depend on the interface, not on a concrete backend.
type Store interface {
	// Rule sets
	SaveRuleSet(name string, set rules.RuleSet) error
	LoadRuleSet(name string) (rules.RuleSet, error)
	ListRuleSets() ([]string, error)
	DeleteRuleSet(name string) error

	// Structure definitions
	SaveStructure(name string, d structure.Definition) error
	LoadStructure(name string) (structure.Definition, error)
	ListStructures() ([]string, error)
	DeleteStructure(name string) error

	// Saved searches
	GetSavedSearches() ([]SavedSearch, error)
	SaveSearch(name string, opts query.Options) error
	DeleteSearch(name string) error

	// Schema and maintenance
	Migrate() error

	// Lifecycle
	Close() error
	Path() string
}
