package cli

import (
	"fmt"
	"io"

	"github.com/cdtdelta/logweave/internal/model"
	"github.com/cdtdelta/logweave/internal/structure"
	"github.com/spf13/cobra"
)

// StructureView is a stored structure with its compiled pattern.
type StructureView struct {
	Name       string               `json:"name"`
	Definition structure.Definition `json:"definition"`
	Pattern    string               `json:"pattern"`
}

// NewStructuresCommand creates the structures command group.
func NewStructuresCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structures",
		Short: "Manage stored structure definitions",
	}

	cmd.AddCommand(newStructuresSaveCommand(rootOpts))
	cmd.AddCommand(newStructuresShowCommand(rootOpts))
	cmd.AddCommand(newStructuresListCommand(rootOpts))
	cmd.AddCommand(newStructuresDeleteCommand(rootOpts))

	return cmd
}

func newStructuresSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> <file>",
		Short: "Store a structure definition from a JSON or YAML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := structure.ReadFile(args[1])
			if err != nil {
				return err
			}
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveStructure(args[0], def); err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd).Success(map[string]interface{}{"name": args[0], "entries": def.Len()},
				func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Saved structure %q with %d entries\n", args[0], def.Len())
					return err
				})
		},
	}
}

func newStructuresShowCommand(rootOpts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored structure and its compiled pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			def, err := store.LoadStructure(args[0])
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := structure.WriteFile(outPath, def); err != nil {
					return err
				}
			}

			view := StructureView{
				Name:       args[0],
				Definition: def,
				Pattern:    structure.Compile(def, model.DefaultLayout),
			}
			return newFormatter(rootOpts, cmd).Success(view, func(w io.Writer) error {
				fmt.Fprintf(w, "Structure %q: %d entries, %d wildcards\n", view.Name, def.Len(), len(def.Wildcards))
				for i, e := range def.Entries {
					fmt.Fprintf(w, "  entry %d: record %d", i, e.Record)
					if e.Link != structure.Unlinked {
						fmt.Fprintf(w, ", link %s", e.Link)
					}
					fmt.Fprintln(w)
				}
				_, err := fmt.Fprintf(w, "Pattern: %s\n", view.Pattern)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "also write the definition to this file (.json, .yaml)")
	return cmd
}

func newStructuresListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored structures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.ListStructures()
			if err != nil {
				return err
			}
			return printNames(rootOpts, cmd, names)
		},
	}
}

func newStructuresDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteStructure(args[0])
		},
	}
}
