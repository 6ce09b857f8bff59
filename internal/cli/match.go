package cli

import (
	"fmt"
	"io"

	"github.com/cdtdelta/logweave/internal/structure"
	"github.com/spf13/cobra"
)

// MatchResult lists the record ranges matching a structure.
type MatchResult struct {
	Pattern string            `json:"pattern"`
	Ranges  []structure.Range `json:"ranges"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	var structPath, name string
	var show bool

	cmd := &cobra.Command{
		Use:   "match <log-file>",
		Short: "Find record runs matching a structure",
		Long: `Compile a structure definition into a pattern and list every run of
records that matches it. Ranges are inclusive, zero-based record indices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(rootOpts, cmd, args[0], structPath, name, show)
		},
	}

	cmd.Flags().StringVarP(&structPath, "structure", "s", "", "structure file (.json, .yaml)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "stored structure name")
	cmd.Flags().BoolVar(&show, "show", false, "print the records of each match")

	return cmd
}

func runMatch(opts *RootOptions, cmd *cobra.Command, logPath, structPath, name string, show bool) error {
	def, err := resolveStructure(opts, structPath, name)
	if err != nil {
		return err
	}
	rs, err := loadRecords(logPath)
	if err != nil {
		return err
	}
	if err := def.Fits(rs); err != nil {
		return fmt.Errorf("structure columns do not fit %s: %w", logPath, err)
	}

	res := MatchResult{
		Pattern: structure.Compile(def, rs.Layout()),
		Ranges:  structure.Find(def, rs),
	}
	if res.Ranges == nil {
		res.Ranges = []structure.Range{}
	}

	return newFormatter(opts, cmd).Success(res, func(w io.Writer) error {
		for _, r := range res.Ranges {
			fmt.Fprintf(w, "%d-%d\n", r.Start, r.End)
			if show {
				raw := rs.Raw()[rs.Bounds(r.Start).Start:rs.Bounds(r.End).End]
				fmt.Fprintf(w, "%s\n\n", raw)
			}
		}
		_, err := fmt.Fprintf(w, "%d match(es)\n", len(res.Ranges))
		return err
	})
}

func resolveStructure(opts *RootOptions, path, name string) (structure.Definition, error) {
	switch {
	case path != "" && name != "":
		return structure.Definition{}, fmt.Errorf("use either --structure or --name, not both")
	case path != "":
		return structure.ReadFile(path)
	case name != "":
		store, err := opts.openStore()
		if err != nil {
			return structure.Definition{}, err
		}
		defer store.Close()
		return store.LoadStructure(name)
	default:
		return structure.Definition{}, fmt.Errorf("one of --structure or --name is required")
	}
}
