package main

import (
	"fmt"
	"io"
	"os"

	"github.com/koios/lockscreenr/internal/config"
	"github.com/koios/lockscreenr/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootFlags struct {
	verbose    bool
	presetsDir string
	redisAddr  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "lockscreenctl",
		Short:         "lockscreenctl renders, validates and pushes lock screen configs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.presetsDir, "presets-dir", "", "Directory of extra preset files")
	cmd.PersistentFlags().StringVar(&flags.redisAddr, "redis-addr", "", "Redis address (defaults to REDIS_ADDR/REDIS_URL)")

	cmd.AddCommand(newPresetsCmd(flags))
	cmd.AddCommand(newRenderCmd(flags))
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newExportCmd(flags))
	cmd.AddCommand(newPushCmd(flags))
	cmd.AddCommand(newWatchCmd(flags))

	return cmd
}

func (f *rootFlags) logger() *zap.Logger {
	if !f.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// registry returns the built-in presets plus any from --presets-dir
func (f *rootFlags) registry(cmd *cobra.Command) (*models.PresetRegistry, error) {
	reg, err := models.NewPresetRegistry()
	if err != nil {
		return nil, fmt.Errorf("loading built-in presets: %w", err)
	}
	if f.presetsDir != "" {
		_, errs := reg.LoadDir(f.presetsDir)
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", e)
		}
	}
	return reg, nil
}

// redisConfig resolves Redis settings from the environment, overridden by --redis-addr
func (f *rootFlags) redisConfig() (config.RedisConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.RedisConfig{}, err
	}
	rc := cfg.Redis
	if f.redisAddr != "" {
		rc.Addr = f.redisAddr
	}
	if !rc.Enabled() {
		return config.RedisConfig{}, fmt.Errorf("no Redis configured: set REDIS_ADDR or pass --redis-addr")
	}
	return rc, nil
}

// readConfigFile loads a config document from path, or stdin for "-"
func readConfigFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, or stdout when path is empty
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
