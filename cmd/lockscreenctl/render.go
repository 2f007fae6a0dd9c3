package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/koios/lockscreenr/internal/passcode"
	"github.com/koios/lockscreenr/internal/render"
	"github.com/koios/lockscreenr/pkg/models"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	preset     string
	configPath string
	out        string
	at         string
	fragment   bool
}

func newRenderCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a preset or config file to a static HTML preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, rootFlags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.preset, "preset", "", "Preset name (defaults to "+models.DefaultPresetName+")")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Exported config file to render, - for stdin")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringVar(&opts.at, "at", "", "Render the clock at this RFC3339 time")
	cmd.Flags().BoolVar(&opts.fragment, "fragment", false, "Only render the device element")
	cmd.MarkFlagsMutuallyExclusive("preset", "config")

	return cmd
}

func runRender(cmd *cobra.Command, rootFlags *rootFlags, opts *renderOptions) error {
	cfg, err := resolveConfig(cmd, rootFlags, opts.preset, opts.configPath)
	if err != nil {
		return err
	}

	now := time.Now()
	if opts.at != "" {
		now, err = time.Parse(time.RFC3339, opts.at)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}

	// static previews show the overlay the way a fresh session would
	lock := passcode.State{Locked: cfg.Passcode.Enabled}
	page := render.Page{View: render.Build(cfg, lock, now)}

	var buf bytes.Buffer
	if opts.fragment {
		err = render.Fragment(&buf, page)
	} else {
		err = render.HTML(&buf, page)
	}
	if err != nil {
		return err
	}
	return writeOutput(cmd, opts.out, buf.Bytes())
}

// resolveConfig loads the config named by --config, or a preset
func resolveConfig(cmd *cobra.Command, rootFlags *rootFlags, preset, configPath string) (models.LockScreenConfig, error) {
	if configPath != "" {
		data, err := readConfigFile(cmd, configPath)
		if err != nil {
			return models.LockScreenConfig{}, err
		}
		return models.ImportJSON(data)
	}

	reg, err := rootFlags.registry(cmd)
	if err != nil {
		return models.LockScreenConfig{}, err
	}
	if preset == "" {
		preset = models.DefaultPresetName
	}
	cfg, ok := reg.Get(preset)
	if !ok {
		return models.LockScreenConfig{}, fmt.Errorf("unknown preset %q (see lockscreenctl presets)", preset)
	}
	return cfg, nil
}
