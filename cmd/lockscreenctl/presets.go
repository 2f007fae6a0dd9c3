package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type presetsOptions struct {
	jsonOutput bool
}

func newPresetsCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &presetsOptions{}

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPresets(cmd, rootFlags, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func runPresets(cmd *cobra.Command, rootFlags *rootFlags, opts *presetsOptions) error {
	reg, err := rootFlags.registry(cmd)
	if err != nil {
		return err
	}
	presets := reg.List()

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(presets)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDEVICE\tOS\tBACKGROUND\tSOURCE")
	for _, p := range presets {
		source := "custom"
		if p.BuiltIn {
			source = "built-in"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Device, p.OS, p.Background, source)
	}
	return w.Flush()
}
