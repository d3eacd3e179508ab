package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/spend-anomaly/internal/app"
	"github.com/dvloznov/spend-anomaly/internal/config"
	"github.com/dvloznov/spend-anomaly/internal/logger"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "spend-anomaly",
		Short: "Detect unusual spending in a user's transactions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(
		newDetectCommand(opts),
		newCheckCommand(opts),
		newAlertsCommand(opts),
		newReportCommand(opts),
		newPublishCommand(opts),
		newSummaryCommand(opts),
	)

	return rootCmd
}

// open loads the config and builds the services. Logs go to stderr so that
// stdout carries only command output.
func (o *rootOptions) open(cmd *cobra.Command) (*app.App, context.Context, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).Level(level)
	ctx := logger.WithContext(cmd.Context(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, ctx, nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
