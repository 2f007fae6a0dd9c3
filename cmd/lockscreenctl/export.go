package main

import (
	"github.com/koios/lockscreenr/pkg/models"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	preset string
	out    string
}

func newExportCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a preset as an importable config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, rootFlags, opts.preset, "")
			if err != nil {
				return err
			}
			data, err := models.ExportJSON(cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd, opts.out, data)
		},
	}

	cmd.Flags().StringVar(&opts.preset, "preset", "", "Preset name (defaults to "+models.DefaultPresetName+")")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (defaults to stdout, suggested name "+models.ExportFileName+")")

	return cmd
}
