package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/spend-anomaly/internal/store/memory"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var userID, file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one new transaction against the user's history",
		Long:  "Check reads a single YAML transaction (id, category, amount, date) and prints the verdict. The verdict is null when there is too little history.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading transaction: %w", err)
			}
			tx, err := memory.ParseTransaction(data)
			if err != nil {
				return err
			}
			if tx.Category == "" {
				return fmt.Errorf("transaction has no category")
			}
			tx.UserID = userID

			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			verdict, err := a.Engine.Check(ctx, userID, tx)
			if err != nil {
				return err
			}
			if verdict == nil {
				return writeJSON(cmd, map[string]interface{}{"verdict": nil})
			}
			return writeJSON(cmd, verdict)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&file, "file", "", "YAML file with the transaction (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
