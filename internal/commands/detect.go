package commands

import (
	"github.com/spf13/cobra"
)

func newDetectCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run anomaly detection for a user or a single category",
	}
	cmd.AddCommand(newDetectUserCommand(opts), newDetectCategoryCommand(opts))
	return cmd
}

func newDetectUserCommand(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Detect anomalies across all of a user's categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			anomalies, err := a.Engine.DetectUser(ctx, userID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]interface{}{
				"anomalies": anomalies,
				"count":     len(anomalies),
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newDetectCategoryCommand(opts *rootOptions) *cobra.Command {
	var userID, categoryID string

	cmd := &cobra.Command{
		Use:   "category",
		Short: "Detect anomalies in one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.Engine.DetectCategory(ctx, userID, categoryID)
			if err != nil {
				return err
			}
			resp := map[string]interface{}{
				"anomalies":  outcome.Anomalies,
				"count":      len(outcome.Anomalies),
				"categoryId": categoryID,
			}
			if outcome.Message != "" {
				resp["message"] = outcome.Message
			}
			if outcome.Method != "" {
				resp["method"] = outcome.Method
			}
			return writeJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&categoryID, "category", "", "category ID (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
