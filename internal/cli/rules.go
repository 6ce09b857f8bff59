package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cdtdelta/logweave/internal/rules"
	"github.com/spf13/cobra"
)

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage stored rule sets",
	}

	cmd.AddCommand(newRulesImportCommand(rootOpts))
	cmd.AddCommand(newRulesExportCommand(rootOpts))
	cmd.AddCommand(newRulesListCommand(rootOpts))
	cmd.AddCommand(newRulesDeleteCommand(rootOpts))
	cmd.AddCommand(newRulesRenameCommand(rootOpts))

	return cmd
}

func newRulesImportCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a rule set from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := rules.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveRuleSet(name, set); err != nil {
				return err
			}

			return newFormatter(rootOpts, cmd).Success(map[string]interface{}{"name": name, "rules": len(set)},
				func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Imported %d rule(s) as %q\n", len(set), name)
					return err
				})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name to store the rule set under (default: file name)")
	return cmd
}

func newRulesExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a stored rule set to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			set, err := store.LoadRuleSet(args[0])
			if err != nil {
				return err
			}
			if outPath != "" {
				return rules.WriteFile(outPath, set)
			}
			data, err := rules.Encode(set, rules.JSON)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (.json, .yaml)")
	return cmd
}

func newRulesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored rule sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.ListRuleSets()
			if err != nil {
				return err
			}
			return printNames(rootOpts, cmd, names)
		},
	}
}

func newRulesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored rule set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteRuleSet(args[0])
		},
	}
}

func newRulesRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-column <name> <old> <new>",
		Short: "Rename a derived column and every condition that references it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			set, err := store.LoadRuleSet(args[0])
			if err != nil {
				return err
			}
			dependents := set.Referencing(args[1])
			renamed, err := set.RenameColumn(args[1], args[2])
			if err != nil {
				return err
			}
			if err := store.SaveRuleSet(args[0], renamed); err != nil {
				return err
			}

			res := RenameResult{Name: args[0], Old: args[1], New: args[2], Dependents: len(dependents)}
			return newFormatter(rootOpts, cmd).Success(res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Renamed %s to %s in %q, %d dependent rule(s) rewritten\n",
					res.Old, res.New, res.Name, res.Dependents)
				return err
			})
		},
	}
}

// RenameResult reports a column rename inside a stored rule set.
type RenameResult struct {
	Name       string `json:"name"`
	Old        string `json:"old"`
	New        string `json:"new"`
	Dependents int    `json:"dependents"`
}

func printNames(opts *RootOptions, cmd *cobra.Command, names []string) error {
	if names == nil {
		names = []string{}
	}
	return newFormatter(opts, cmd).Success(names, func(w io.Writer) error {
		for _, n := range names {
			if _, err := fmt.Fprintln(w, n); err != nil {
				return err
			}
		}
		return nil
	})
}
