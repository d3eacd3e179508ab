package scan

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/jobs"
	"github.com/dvloznov/spend-anomaly/internal/logger"
	"github.com/dvloznov/spend-anomaly/internal/notionsync"
)

// UserDetector is the part of the engine a scan needs.
type UserDetector interface {
	DetectUser(ctx context.Context, userID string) ([]domain.AnomalyResult, error)
}

// Archiver stores a user report and returns its URI.
type Archiver interface {
	Archive(ctx context.Context, userID string, anomalies []domain.AnomalyResult) (*domain.Report, string, error)
}

// Publisher pushes anomalies to an external tracker.
type Publisher interface {
	Publish(ctx context.Context, userID string, anomalies []domain.AnomalyResult, dryRun bool) (*notionsync.PublishResult, error)
}

// Runner executes DetectUserJobs. Archiver and Publisher are optional.
type Runner struct {
	Detector  UserDetector
	Archiver  Archiver
	Publisher Publisher
}

// Handle runs one scan and records the results on the job. Publishing
// failures are logged without failing the job so that a retry does not
// re-archive the report.
func (r *Runner) Handle(ctx context.Context, job *jobs.DetectUserJob) error {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("user_id", job.UserID).
		Logger()

	if job.UserID == "" {
		return fmt.Errorf("scan job %s has no user", job.JobID)
	}

	anomalies, err := r.Detector.DetectUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("detecting anomalies: %w", err)
	}
	job.AnomalyCount = len(anomalies)

	if r.Archiver != nil {
		_, uri, err := r.Archiver.Archive(ctx, job.UserID, anomalies)
		if err != nil {
			return fmt.Errorf("archiving report: %w", err)
		}
		job.ReportURI = uri
	}

	if r.Publisher != nil && len(anomalies) > 0 {
		res, err := r.Publisher.Publish(ctx, job.UserID, anomalies, false)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to publish anomalies to Notion")
		} else {
			job.Published = res.Created
		}
	}

	log.Info().
		Int("anomaly_count", job.AnomalyCount).
		Str("report_uri", job.ReportURI).
		Int("published", job.Published).
		Msg("User scan finished")

	return nil
}
