package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/spend-anomaly/internal/logger"
	"github.com/dvloznov/spend-anomaly/internal/reports"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Archive and read user anomaly reports",
	}
	cmd.AddCommand(newReportArchiveCommand(opts), newReportFetchCommand())
	return cmd
}

func newReportArchiveCommand(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Scan a user and store the report in the configured bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Archiver == nil {
				return fmt.Errorf("reports.bucket is not configured")
			}

			anomalies, err := a.Engine.DetectUser(ctx, userID)
			if err != nil {
				return err
			}
			report, uri, err := a.Archiver.Archive(ctx, userID, anomalies)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]interface{}{
				"reportId": report.ReportID,
				"uri":      uri,
				"count":    report.Count,
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newReportFetchCommand() *cobra.Command {
	var uri string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print an archived report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := reports.ParseURI(uri); err != nil {
				return err
			}

			ctx := logger.WithContext(cmd.Context(), logger.NewWithWriter(cmd.ErrOrStderr()))
			objects, err := reports.NewGCSObjectStore(ctx)
			if err != nil {
				return err
			}
			defer objects.Close()

			report, err := reports.NewArchiver(objects, "").Fetch(ctx, uri)
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}

	cmd.Flags().StringVar(&uri, "uri", "", "gs:// URI of the report (required)")
	_ = cmd.MarkFlagRequired("uri")

	return cmd
}
