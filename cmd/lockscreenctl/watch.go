package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/koios/lockscreenr/internal/redis"
	"github.com/koios/lockscreenr/pkg/models"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	count      int
	jsonOutput bool
}

func newWatchCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch SESSION_ID",
		Short: "Print config changes of a session as they happen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, rootFlags, opts, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Exit after this many events (0 watches forever)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print each event as JSON")

	return cmd
}

func runWatch(cmd *cobra.Command, rootFlags *rootFlags, opts *watchOptions, sessionID string) error {
	rc, err := rootFlags.redisConfig()
	if err != nil {
		return err
	}
	client, err := redis.NewClient(rc, rootFlags.logger())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub := client.Subscribe(ctx, sessionID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to session %s: %w", sessionID, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", redis.Channel(sessionID))

	seen := 0
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event models.ConfigEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipping malformed event: %v\n", err)
				continue
			}
			if err := printEvent(cmd, event, opts.jsonOutput); err != nil {
				return err
			}
			seen++
			if opts.count > 0 && seen >= opts.count {
				return nil
			}
		}
	}
}

func printEvent(cmd *cobra.Command, event models.ConfigEvent, jsonOutput bool) error {
	if jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(event)
	}
	cfg := event.Config
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  rev %d  %s/%s  %d notifications  %d hotspots  passcode=%t\n",
		event.UpdatedAt.Format("15:04:05"), event.Revision, cfg.Device, cfg.OS,
		len(cfg.Notifications), len(cfg.Hotspots), cfg.Passcode.Enabled)
	return err
}
