package cli

import (
	"fmt"
	"io"

	"github.com/cdtdelta/logweave/internal/database"
	"github.com/cdtdelta/logweave/internal/query"
	"github.com/spf13/cobra"
)

// SearchResult lists the records matching a search.
type SearchResult struct {
	Options query.Options `json:"options"`
	Matches []int         `json:"matches"`
}

type searchFlags struct {
	column        string
	regex         bool
	wholeWord     bool
	caseSensitive bool
	saveAs        string
	saved         string
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search <log-file> [text]",
		Short: "Search records by free text or regular expression",
		Long: `Search the records of a log file. Every whitespace separated term must
occur; wrap the text in double quotes to search for a phrase. Whole-word and
case-sensitivity defaults come from the search section of the config.

Examples:
  logweave search app.jsonl "disk full"
  logweave search app.jsonl 'sd[a-z]' --regex --column msg
  logweave search app.jsonl error --save errors
  logweave search app.jsonl --saved errors`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(rootOpts, cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.column, "column", "", "search only this column")
	cmd.Flags().BoolVar(&flags.regex, "regex", false, "treat terms as regular expressions")
	cmd.Flags().BoolVar(&flags.wholeWord, "whole-word", false, "match whole words only")
	cmd.Flags().BoolVar(&flags.caseSensitive, "case-sensitive", false, "match case")
	cmd.Flags().StringVar(&flags.saveAs, "save", "", "store the search options under this name")
	cmd.Flags().StringVar(&flags.saved, "saved", "", "start from a stored search")

	return cmd
}

func runSearch(opts *RootOptions, cmd *cobra.Command, args []string, flags *searchFlags) error {
	search := query.Options{
		Column:        query.AllColumns,
		WholeWord:     opts.Config.Search.WholeWord,
		CaseSensitive: opts.Config.Search.CaseSensitive,
	}

	var store database.Store
	if flags.saved != "" || flags.saveAs != "" {
		var err error
		if store, err = opts.openStore(); err != nil {
			return err
		}
		defer store.Close()
	}

	if flags.saved != "" {
		found, err := findSavedSearch(store, flags.saved)
		if err != nil {
			return err
		}
		search = found
	}

	if len(args) == 2 {
		search.Text = args[1]
	}
	if cmd.Flags().Changed("regex") {
		search.Regex = flags.regex
	}
	if cmd.Flags().Changed("whole-word") {
		search.WholeWord = flags.wholeWord
	}
	if cmd.Flags().Changed("case-sensitive") {
		search.CaseSensitive = flags.caseSensitive
	}

	rs, err := loadRecords(args[0])
	if err != nil {
		return err
	}
	if flags.column != "" {
		idx := rs.ColumnIndex(flags.column)
		if idx < 0 {
			return fmt.Errorf("unknown column %q", flags.column)
		}
		search.Column = idx
	}

	if flags.saveAs != "" {
		if err := store.SaveSearch(flags.saveAs, search); err != nil {
			return err
		}
	}

	res := SearchResult{Options: search, Matches: query.Search(rs, search)}
	if res.Matches == nil {
		res.Matches = []int{}
	}

	return newFormatter(opts, cmd).Success(res, func(w io.Writer) error {
		for _, i := range res.Matches {
			b := rs.Bounds(i)
			fmt.Fprintf(w, "%d\t%s\n", i, rs.Raw()[b.Start:b.End])
		}
		_, err := fmt.Fprintf(w, "%d of %d records\n", len(res.Matches), rs.Len())
		return err
	})
}

func findSavedSearch(store database.Store, name string) (query.Options, error) {
	searches, err := store.GetSavedSearches()
	if err != nil {
		return query.Options{}, err
	}
	for _, s := range searches {
		if s.Name == name {
			return s.Options, nil
		}
	}
	return query.Options{}, fmt.Errorf("saved search %q: %w", name, database.ErrNotFound)
}
