package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

// memoryObjects is an in-memory ObjectStore.
type memoryObjects struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.objects[bucket+"/"+object] = data
	m.types[bucket+"/"+object] = contentType
	return nil
}

func (m *memoryObjects) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	data, ok := m.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func TestArchiver_ArchiveAndFetch(t *testing.T) {
	objects := newMemoryObjects()
	a := NewArchiver(objects, "anomaly-reports")
	a.now = func() time.Time { return time.Date(2024, 7, 4, 9, 30, 0, 0, time.UTC) }

	anomalies := []domain.AnomalyResult{{
		Transaction:  domain.Transaction{ID: "t1", Amount: domain.ParseAmount("150"), Category: "grocery"},
		AnomalyScore: domain.NewScore(9),
		Method:       domain.MethodForced,
	}}

	report, uri, err := a.Archive(context.Background(), "u1", anomalies)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, "gs://anomaly-reports/reports/u1/2024/07/04/"+report.ReportID+".json", uri)
	assert.Equal(t, "application/json", objects.types["anomaly-reports/reports/u1/2024/07/04/"+report.ReportID+".json"])

	fetched, err := a.Fetch(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, report.ReportID, fetched.ReportID)
	assert.Equal(t, "u1", fetched.UserID)
	require.Len(t, fetched.Anomalies, 1)
	assert.Equal(t, "t1", fetched.Anomalies[0].ID)
	assert.Equal(t, 9.0, fetched.Anomalies[0].AnomalyScore.Value)
}

func TestArchiver_EmptyReport(t *testing.T) {
	objects := newMemoryObjects()
	report, _, err := NewArchiver(objects, "b").Archive(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.NotNil(t, report.Anomalies)
	assert.Equal(t, 0, report.Count)
}

func TestArchiver_WriteError(t *testing.T) {
	objects := newMemoryObjects()
	objects.err = errors.New("permission denied")

	_, _, err := NewArchiver(objects, "b").Archive(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, objects.err)
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/reports/u1/r.json", "bucket", "reports/u1/r.json", false},
		{"s3://bucket/key", "", "", true},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}
