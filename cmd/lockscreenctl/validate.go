package main

import (
	"fmt"

	"github.com/koios/lockscreenr/pkg/models"
	"github.com/spf13/cobra"
)

type validateOptions struct {
	strict bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that an exported config file can be imported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Also validate every field")

	return cmd
}

func runValidate(cmd *cobra.Command, path string, opts *validateOptions) error {
	data, err := readConfigFile(cmd, path)
	if err != nil {
		return err
	}

	parse := models.ImportJSON
	if opts.strict {
		parse = models.ImportJSONStrict
	}
	cfg, err := parse(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: %s/%s, %d notifications, %d hotspots\n",
		cfg.Device, cfg.OS, len(cfg.Notifications), len(cfg.Hotspots))
	return nil
}
