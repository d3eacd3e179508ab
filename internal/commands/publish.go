package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCommand(opts *rootOptions) *cobra.Command {
	var userID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a user's anomalies to the Notion database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Publisher == nil {
				return fmt.Errorf("notion.token and notion.database_id are not configured")
			}

			anomalies, err := a.Engine.DetectUser(ctx, userID)
			if err != nil {
				return err
			}
			result, err := a.Publisher.Publish(ctx, userID, anomalies, dryRun)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be created without writing to Notion")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
