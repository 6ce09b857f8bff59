package cli

import (
	"fmt"
	"io"

	"github.com/cdtdelta/logweave/internal/csvparser"
	"github.com/cdtdelta/logweave/internal/ingest"
	"github.com/cdtdelta/logweave/internal/logger"
	"github.com/cdtdelta/logweave/internal/model"
	"github.com/cdtdelta/logweave/internal/rules"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RecordsView is the JSON form of a record set.
type RecordsView struct {
	Headers []model.Header `json:"headers"`
	Rows    []model.Record `json:"rows"`
}

// ApplyResult summarises an apply written to a file.
type ApplyResult struct {
	Records int    `json:"records"`
	Columns int    `json:"columns"`
	Output  string `json:"output"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	var rulesPath, name, outPath string

	cmd := &cobra.Command{
		Use:   "apply <log-file>",
		Short: "Derive rule columns and export the records",
		Long: `Evaluate a rule set over a log file and write every record, derived
columns included, as CSV. The rule set comes from a JSON or YAML file
(--rules) or from the database (--name).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, cmd, args[0], rulesPath, name, outPath)
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "rule set file (.json, .yaml)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "stored rule set name")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write CSV to this file instead of stdout")

	return cmd
}

func runApply(opts *RootOptions, cmd *cobra.Command, logPath, rulesPath, name, outPath string) error {
	set, err := resolveRuleSet(opts, rulesPath, name)
	if err != nil {
		return err
	}
	rs, err := loadRecords(logPath)
	if err != nil {
		return err
	}

	out := set.Apply(rs)
	f := newFormatter(opts, cmd)

	if outPath != "" {
		if err := csvparser.WriteFile(outPath, out); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		res := ApplyResult{Records: out.Len(), Columns: len(out.Headers()), Output: outPath}
		return f.Success(res, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Wrote %d records with %d columns to %s\n", res.Records, res.Columns, res.Output)
			return err
		})
	}

	return f.Success(RecordsView{Headers: out.Headers(), Rows: out.Rows()}, func(w io.Writer) error {
		return csvparser.WriteRecords(w, out)
	})
}

func resolveRuleSet(opts *RootOptions, path, name string) (rules.RuleSet, error) {
	switch {
	case path != "" && name != "":
		return nil, fmt.Errorf("use either --rules or --name, not both")
	case path != "":
		return rules.ReadFile(path)
	case name != "":
		store, err := opts.openStore()
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadRuleSet(name)
	default:
		return nil, fmt.Errorf("one of --rules or --name is required")
	}
}

// loadRecords reads a log file in any supported format.
func loadRecords(path string) (*model.RecordSet, error) {
	res, err := ingest.Load(path, func(count int) {
		logger.Debugz("reading records", zap.String("path", path), zap.Int("count", count))
	})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}
