package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/domnode/pkg/filter"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List filter presets and their stages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listPresets(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func listPresets(w io.Writer) error {
	for _, name := range filter.PresetNames() {
		chain, err := filter.ByName(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-10s %s\n", name, strings.Join(stageNames(chain), " -> "))
	}
	fmt.Fprintf(w, "%-10s %s\n", presetNone, "(no filtering)")
	fmt.Fprintf(w, "\nSemantic attributes: %s\n", strings.Join(filter.DefaultSemanticAttributes(), ", "))
	return nil
}

// stageNames flattens nested chains into their leaf stage names.
func stageNames(f filter.Filter) []string {
	chain, ok := f.(*filter.Chain)
	if !ok {
		return []string{f.Name()}
	}
	var names []string
	for _, st := range chain.Stages() {
		names = append(names, stageNames(st)...)
	}
	return names
}
