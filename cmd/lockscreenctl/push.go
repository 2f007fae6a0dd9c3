package main

import (
	"context"
	"fmt"
	"time"

	"github.com/koios/lockscreenr/internal/redis"
	"github.com/koios/lockscreenr/pkg/models"
	"github.com/spf13/cobra"
)

type pushOptions struct {
	preset string
	strict bool
}

func newPushCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &pushOptions{}

	cmd := &cobra.Command{
		Use:   "push SESSION_ID [FILE]",
		Short: "Queue a config for a running session through Redis",
		Long: "Queue a config document on the import stream. The server applies it to the\n" +
			"session as an import. Pass a file, - for stdin, or --preset.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd, rootFlags, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.preset, "preset", "", "Push a preset instead of a file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Validate every field before pushing")

	return cmd
}

func runPush(cmd *cobra.Command, rootFlags *rootFlags, opts *pushOptions, args []string) error {
	sessionID := args[0]

	var payload []byte
	switch {
	case len(args) == 2:
		data, err := readConfigFile(cmd, args[1])
		if err != nil {
			return err
		}
		payload = data
	case opts.preset != "":
		cfg, err := resolveConfig(cmd, rootFlags, opts.preset, "")
		if err != nil {
			return err
		}
		if payload, err = models.ExportJSON(cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("nothing to push: pass a FILE or --preset")
	}

	// reject locally what the server would reject anyway
	parse := models.ImportJSON
	if opts.strict {
		parse = models.ImportJSONStrict
	}
	if _, err := parse(payload); err != nil {
		return err
	}

	rc, err := rootFlags.redisConfig()
	if err != nil {
		return err
	}
	client, err := redis.NewClient(rc, rootFlags.logger())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	id, err := client.EnqueueImport(ctx, sessionID, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s for session %s\n", id, sessionID)
	return nil
}
