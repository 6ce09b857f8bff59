package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cdtdelta/logweave/internal/config"
	"github.com/cdtdelta/logweave/internal/csvparser"
	"github.com/cdtdelta/logweave/internal/database"
	"github.com/cdtdelta/logweave/internal/ingest"
	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"github.com/cdtdelta/logweave/internal/query"
	"github.com/cdtdelta/logweave/internal/rules"
	"github.com/cdtdelta/logweave/internal/structure"
	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
)

var (
	errNoLog   = errors.New("no log loaded")
	errNoStore = errors.New("no database open")
)

// App is the main application struct that Wails binds to the frontend.
// All exported methods become callable from JavaScript.
type App struct {
	ctx   context.Context
	cfg   *config.Config
	store database.Store
	emit  func(event string, data ...interface{})

	mu     sync.Mutex
	path   string
	source *model.RecordSet // records as loaded
	view   *model.RecordSet // source plus derived rule columns
	rules  rules.RuleSet
	def    structure.Definition
}

// NewApp creates a new App instance.
func NewApp() *App {
	return &App{
		emit: func(string, ...interface{}) {},
		def:  structure.Definition{DefaultLink: structure.LinkNone},
	}
}

// startup is called when the app starts. The context is saved
// so we can call runtime methods (dialogs, events, etc.)
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.emit = func(event string, data ...interface{}) {
		runtime.EventsEmit(ctx, event, data...)
	}

	cfg, err := config.Load("")
	if err != nil {
		logger.Errorz("loading config", zap.Error(err))
		return
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		logger.Warnz("invalid log level", zap.Error(err))
	}
	a.cfg = cfg
	a.def.DefaultLink = cfg.DefaultLink()

	store, err := database.OpenStore(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Errorz("opening database", zap.String("dsn", cfg.Database.DSN), zap.Error(err))
		return
	}
	a.store = store
	logger.Infow("opened store", "driver", cfg.Database.Driver)
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	if a.store != nil {
		a.store.Close()
	}
	logger.Sync()
}

// -- Log Operations --

// LogInfo contains summary info about the loaded log.
type LogInfo struct {
	Path     string         `json:"path"`
	Format   string         `json:"format"`
	Records  int            `json:"records"`
	Excluded int            `json:"excluded"`
	Headers  []model.Header `json:"headers"`
}

// OpenLog opens a file dialog and loads the chosen log file.
func (a *App) OpenLog() (*LogInfo, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open Log File",
		Filters: []runtime.FileFilter{
			{DisplayName: "Log Files (*.jsonl, *.json, *.csv, *.tln, *.txt)", Pattern: "*.jsonl;*.ndjson;*.json;*.csv;*.tln;*.txt"},
			{DisplayName: "All Files (*.*)", Pattern: "*.*"},
		},
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil // user cancelled
	}
	return a.LoadLog(path)
}

// LoadLog reads a log file, re-applies the current rules and starts a new
// structure.
func (a *App) LoadLog(path string) (*LogInfo, error) {
	a.emit("load:progress", map[string]interface{}{
		"phase": "reading", "message": "Reading log file...", "count": 0,
	})
	res, err := ingest.Load(path, func(count int) {
		a.emit("load:progress", map[string]interface{}{
			"phase": "reading", "message": fmt.Sprintf("Read %d records...", count), "count": count,
		})
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if res.Excluded > 0 {
		logger.Warnw("skipped lines that are not records", "path", path, "excluded", res.Excluded)
	}
	a.path = path
	a.source = res.Records
	a.view = a.rules.Apply(res.Records)
	a.def = structure.Definition{DefaultLink: a.def.DefaultLink}

	a.emit("load:progress", map[string]interface{}{
		"phase": "done", "message": fmt.Sprintf("Loaded %d records", res.Count), "count": res.Count,
	})
	return &LogInfo{
		Path:     path,
		Format:   string(res.Format),
		Records:  res.Count,
		Excluded: res.Excluded,
		Headers:  a.view.Headers(),
	}, nil
}

// CloseLog forgets the loaded log and its structure.
func (a *App) CloseLog() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.path = ""
	a.source = nil
	a.view = nil
	a.def = structure.Definition{DefaultLink: a.def.DefaultLink}
}

// Headers returns the columns of the loaded log, derived columns last.
func (a *App) Headers() []model.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view == nil {
		return nil
	}
	return a.view.Headers()
}

// RowsPage is one page of records.
type RowsPage struct {
	Rows   []model.Record `json:"rows"`
	Offset int            `json:"offset"`
	Total  int            `json:"total"`
}

// Rows returns up to limit records starting at offset.
func (a *App) Rows(offset, limit int) (*RowsPage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view == nil {
		return nil, errNoLog
	}

	total := a.view.Len()
	if limit <= 0 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return &RowsPage{Rows: a.view.Rows()[offset:end], Offset: offset, Total: total}, nil
}

// RecordAtOffset returns the record whose raw text encloses byte offset
// off, for mapping a click in the raw view back to a grid row.
func (a *App) RecordAtOffset(off int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view == nil {
		return 0, errNoLog
	}
	i, ok := a.view.RecordAt(off)
	if !ok {
		return 0, fmt.Errorf("offset %d is outside every record", off)
	}
	return i, nil
}

// -- Rules --

// ApplyRules replaces the rule set with a JSON snapshot and re-evaluates it.
func (a *App) ApplyRules(snapshot string) ([]model.Header, error) {
	set, err := rules.Decode([]byte(snapshot), rules.JSON)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setRules(set), nil
}

// setRules must be called with a.mu held.
func (a *App) setRules(set rules.RuleSet) []model.Header {
	a.rules = set
	if a.source == nil {
		return nil
	}
	a.view = set.Apply(a.source)
	return a.view.Headers()
}

// Rules returns the current rule set as a JSON snapshot.
func (a *App) Rules() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, err := rules.Encode(a.rules, rules.JSON)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RenameRuleColumn renames a derived column and every condition referencing it.
func (a *App) RenameRuleColumn(oldName, newName string) ([]model.Header, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, err := a.rules.RenameColumn(oldName, newName)
	if err != nil {
		return nil, err
	}
	return a.setRules(set), nil
}

// ImportRules opens a file dialog and applies the chosen rule file.
func (a *App) ImportRules() ([]model.Header, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Import Rules",
		Filters: []runtime.FileFilter{
			{DisplayName: "Rule Files (*.json, *.yaml)", Pattern: "*.json;*.yaml;*.yml"},
		},
	})
	if err != nil || path == "" {
		return nil, err
	}
	set, err := rules.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setRules(set), nil
}

// ExportRules opens a save dialog and writes the current rule set.
func (a *App) ExportRules() (string, error) {
	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Export Rules",
		DefaultFilename: "rules.json",
		Filters: []runtime.FileFilter{
			{DisplayName: "Rule Files (*.json, *.yaml)", Pattern: "*.json;*.yaml;*.yml"},
		},
	})
	if err != nil || path == "" {
		return "", err
	}
	a.mu.Lock()
	set := a.rules
	a.mu.Unlock()
	if err := rules.WriteFile(path, set); err != nil {
		return "", err
	}
	return path, nil
}

// SaveRules stores the current rule set in the database.
func (a *App) SaveRules(name string) error {
	if a.store == nil {
		return errNoStore
	}
	a.mu.Lock()
	set := a.rules
	a.mu.Unlock()
	return a.store.SaveRuleSet(name, set)
}

// LoadRules replaces the rule set with one stored in the database.
func (a *App) LoadRules(name string) ([]model.Header, error) {
	if a.store == nil {
		return nil, errNoStore
	}
	set, err := a.store.LoadRuleSet(name)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setRules(set), nil
}

// ListRuleSets returns the names of stored rule sets.
func (a *App) ListRuleSets() ([]string, error) {
	if a.store == nil {
		return nil, errNoStore
	}
	return a.store.ListRuleSets()
}

// DeleteRuleSet removes a stored rule set.
func (a *App) DeleteRuleSet(name string) error {
	if a.store == nil {
		return errNoStore
	}
	return a.store.DeleteRuleSet(name)
}

// -- Search --

// Search returns the indices of records matching opts.
func (a *App) Search(opts query.Options) ([]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view == nil {
		return nil, errNoLog
	}
	return query.Search(a.view, opts), nil
}

// DefaultSearchOptions returns search options seeded from the config.
func (a *App) DefaultSearchOptions() query.Options {
	opts := query.Options{Column: query.AllColumns}
	if a.cfg != nil {
		opts.WholeWord = a.cfg.Search.WholeWord
		opts.CaseSensitive = a.cfg.Search.CaseSensitive
	}
	return opts
}

// GetSavedSearches returns all saved searches.
func (a *App) GetSavedSearches() ([]database.SavedSearch, error) {
	if a.store == nil {
		return nil, errNoStore
	}
	return a.store.GetSavedSearches()
}

// SaveSearch stores search options under name.
func (a *App) SaveSearch(name string, opts query.Options) error {
	if a.store == nil {
		return errNoStore
	}
	return a.store.SaveSearch(name, opts)
}

// DeleteSavedSearch removes a saved search.
func (a *App) DeleteSavedSearch(name string) error {
	if a.store == nil {
		return errNoStore
	}
	return a.store.DeleteSearch(name)
}

// -- Structure --

// StructureState is the current structure, its pattern and its matches.
type StructureState struct {
	Definition structure.Definition `json:"definition"`
	Pattern    string               `json:"pattern"`
	Matches    []structure.Range    `json:"matches"`
}

// Structure returns the current structure state.
func (a *App) Structure() *StructureState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.structureState()
}

// structureState must be called with a.mu held.
func (a *App) structureState() *StructureState {
	st := &StructureState{Definition: a.def, Matches: []structure.Range{}}
	if a.source == nil {
		return st
	}
	st.Pattern = structure.Compile(a.def, a.source.Layout())
	if m := structure.Match(st.Pattern, a.source); m != nil {
		st.Matches = m
	}
	return st
}

// editStructure applies edit to the current definition and keeps the
// result only if it succeeds.
func (a *App) editStructure(edit func(structure.Definition) (structure.Definition, error)) (*StructureState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.source == nil {
		return nil, errNoLog
	}
	d, err := edit(a.def)
	if err != nil {
		return nil, err
	}
	a.def = d
	return a.structureState(), nil
}

// AddStructureEntry appends record as a new example entry.
func (a *App) AddStructureEntry(record int) (*StructureState, error) {
	return a.editStructure(func(d structure.Definition) (structure.Definition, error) {
		return d.AddEntry(a.source, record)
	})
}

// RemoveStructureEntry removes an example entry and its wildcards.
func (a *App) RemoveStructureEntry(entry int) (*StructureState, error) {
	return a.editStructure(func(d structure.Definition) (structure.Definition, error) {
		return d.RemoveEntry(entry)
	})
}

// ToggleStructureCell switches a cell between literal and free.
func (a *App) ToggleStructureCell(entry, cell int) (*StructureState, error) {
	return a.editStructure(func(d structure.Definition) (structure.Definition, error) {
		return d.ToggleCell(entry, cell)
	})
}

// SetStructureLink sets the link distance after entry (None, Min or Max).
func (a *App) SetStructureLink(entry int, link string) (*StructureState, error) {
	l, err := structure.ParseLink(link)
	if err != nil {
		return nil, err
	}
	return a.editStructure(func(d structure.Definition) (structure.Definition, error) {
		return d.SetLink(entry, l)
	})
}

// InsertWildcard marks bytes [start, end) of a literal segment as a
// wildcard. An empty id mints a new one.
func (a *App) InsertWildcard(entry, cell, segment, start, end int, id string) (*StructureState, error) {
	if id == "" {
		id = uuid.NewString()
	}
	return a.editStructure(func(d structure.Definition) (structure.Definition, error) {
		return d.InsertWildcard(entry, cell, segment, start, end, id)
	})
}

// RemoveWildcard turns a wildcard segment back into literal text.
func (a *App) RemoveWildcard(entry, cell, segment int) (*StructureState, error) {
	return a.editStructure(func(d structure.Definition) (structure.Definition, error) {
		return d.RemoveWildcard(entry, cell, segment)
	})
}

// ClearStructure removes every entry.
func (a *App) ClearStructure() *StructureState {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.def = a.def.Clear()
	return a.structureState()
}

// FindStructures returns the record ranges matching the current structure.
func (a *App) FindStructures() ([]structure.Range, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.source == nil {
		return nil, errNoLog
	}
	return a.structureState().Matches, nil
}

// SaveStructure stores the current structure in the database.
func (a *App) SaveStructure(name string) error {
	if a.store == nil {
		return errNoStore
	}
	a.mu.Lock()
	d := a.def
	a.mu.Unlock()
	return a.store.SaveStructure(name, d)
}

// LoadStructure replaces the current structure with a stored one.
func (a *App) LoadStructure(name string) (*StructureState, error) {
	if a.store == nil {
		return nil, errNoStore
	}
	d, err := a.store.LoadStructure(name)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.source != nil {
		if err := d.Fits(a.source); err != nil {
			return nil, fmt.Errorf("structure %q: %w", name, err)
		}
	}
	a.def = d
	return a.structureState(), nil
}

// ListStructures returns the names of stored structures.
func (a *App) ListStructures() ([]string, error) {
	if a.store == nil {
		return nil, errNoStore
	}
	return a.store.ListStructures()
}

// -- Export --

// ExportCSV opens a save dialog and writes every record, derived columns
// included.
func (a *App) ExportCSV() (string, error) {
	a.mu.Lock()
	view, src := a.view, a.path
	a.mu.Unlock()
	if view == nil {
		return "", errNoLog
	}

	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Export CSV",
		DefaultFilename: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + "_classified.csv",
		Filters: []runtime.FileFilter{
			{DisplayName: "CSV Files (*.csv)", Pattern: "*.csv"},
		},
	})
	if err != nil || path == "" {
		return "", err
	}
	if err := csvparser.WriteFile(path, view); err != nil {
		return "", fmt.Errorf("exporting CSV: %w", err)
	}
	return path, nil
}

// GetVersion returns the application version string.
func (a *App) GetVersion() string {
	return Version
}
