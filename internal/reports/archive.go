package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/logger"
)

// Archiver stores anomaly reports as JSON objects in one bucket.
type Archiver struct {
	store  ObjectStore
	bucket string
	now    func() time.Time
}

// NewArchiver creates an archiver writing to bucket.
func NewArchiver(store ObjectStore, bucket string) *Archiver {
	return &Archiver{store: store, bucket: bucket, now: time.Now}
}

// Archive writes a report of anomalies for userID and returns it with its
// gs:// URI.
func (a *Archiver) Archive(ctx context.Context, userID string, anomalies []domain.AnomalyResult) (*domain.Report, string, error) {
	if anomalies == nil {
		anomalies = []domain.AnomalyResult{}
	}
	report := &domain.Report{
		ReportID:    uuid.NewString(),
		UserID:      userID,
		GeneratedAt: a.now().UTC(),
		Anomalies:   anomalies,
		Count:       len(anomalies),
	}

	data, err := json.Marshal(report)
	if err != nil {
		return nil, "", fmt.Errorf("encoding report: %w", err)
	}

	object := ObjectName(report)
	if err := a.store.Write(ctx, a.bucket, object, "application/json", data); err != nil {
		return nil, "", fmt.Errorf("archiving report: %w", err)
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, object)
	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", userID).
		Str("report_id", report.ReportID).
		Int("anomaly_count", report.Count).
		Str("uri", uri).
		Msg("Report archived")

	return report, uri, nil
}

// Fetch reads a report back from its gs:// URI.
func (a *Archiver) Fetch(ctx context.Context, uri string) (*domain.Report, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	data, err := a.store.Read(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", uri, err)
	}
	return &report, nil
}

// ObjectName is reports/<user>/<yyyy>/<mm>/<dd>/<report id>.json.
func ObjectName(r *domain.Report) string {
	return path.Join("reports", r.UserID, r.GeneratedAt.Format("2006/01/02"), r.ReportID+".json")
}

// ParseURI splits gs://bucket/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
