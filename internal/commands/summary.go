package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write a plain-language summary of a user's anomalies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Narrator.Enabled() {
				return fmt.Errorf("gemini.model is not configured")
			}

			anomalies, err := a.Engine.DetectUser(ctx, userID)
			if err != nil {
				return err
			}
			summary, err := a.Narrator.Summarize(ctx, userID, anomalies)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary.Text)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
