package cli

import (
	"fmt"
	"io"

	"github.com/cdtdelta/logweave/internal/csvparser"
	"github.com/cdtdelta/logweave/internal/database"
	"github.com/spf13/cobra"
)

// NewSearchesCommand creates the saved searches command group.
func NewSearchesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searches",
		Short: "Manage saved searches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			searches, err := store.GetSavedSearches()
			if err != nil {
				return err
			}
			if searches == nil {
				searches = []database.SavedSearch{}
			}
			return newFormatter(rootOpts, cmd).Success(searches, func(w io.Writer) error {
				for _, s := range searches {
					fmt.Fprintf(w, "%s\t%q\tcolumn=%d regex=%t wholeWord=%t caseSensitive=%t\n",
						s.Name, s.Options.Text, s.Options.Column, s.Options.Regex,
						s.Options.WholeWord, s.Options.CaseSensitive)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteSearch(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <csv-file>",
		Short: "Store the searches listed in a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			searches, err := csvparser.ReadSavedSearches(args[0])
			if err != nil {
				return err
			}
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, s := range searches {
				if err := store.SaveSearch(s.Name, s.Options); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d search(es)\n", len(searches))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <csv-file>",
		Short: "Write every saved search to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stored, err := store.GetSavedSearches()
			if err != nil {
				return err
			}
			searches := make([]csvparser.SavedSearch, len(stored))
			for i, s := range stored {
				searches[i] = csvparser.SavedSearch{Name: s.Name, Options: s.Options}
			}
			return csvparser.WriteSavedSearches(args[0], searches)
		},
	})

	return cmd
}
