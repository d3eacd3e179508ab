package commands

import (
	"github.com/spf13/cobra"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

func newAlertsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage per-category spending alerts",
	}
	cmd.AddCommand(newAlertsListCommand(opts), newAlertsSetCommand(opts))
	return cmd
}

func newAlertsListCommand(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Alerts.List(ctx, userID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]interface{}{"alerts": list})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newAlertsSetCommand(opts *rootOptions) *cobra.Command {
	var alert domain.CategoryAlert

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the alert for a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.Alerts.Set(ctx, alert)
			if err != nil {
				return err
			}
			return writeJSON(cmd, saved)
		},
	}

	cmd.Flags().StringVar(&alert.UserID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&alert.Category, "category", "", "category ID (required)")
	cmd.Flags().Float64Var(&alert.Threshold, "threshold", 0, "alert when an expense exceeds this amount (required)")
	cmd.Flags().BoolVar(&alert.Active, "active", true, "whether the alert is active")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("threshold")

	return cmd
}
