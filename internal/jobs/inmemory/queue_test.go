package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/spend-anomaly/internal/jobs"
	"github.com/dvloznov/spend-anomaly/internal/store"
)

func waitForStatus(t *testing.T, s *Store, jobID string, status jobs.JobStatus) *jobs.DetectUserJob {
	t.Helper()
	var got *jobs.DetectUserJob
	require.Eventually(t, func() bool {
		job, err := s.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = job
		return job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_ProcessesJob(t *testing.T) {
	s := NewStore()
	q := NewQueue(10, 2, s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.DetectUserJob) error {
		job.AnomalyCount = 3
		job.ReportURI = "gs://bucket/report.json"
		return nil
	}))
	defer q.Close()

	job := &jobs.DetectUserJob{UserID: "u1"}
	require.NoError(t, q.PublishDetectUser(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, s, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 3, done.AnomalyCount)
	assert.Equal(t, "gs://bucket/report.json", done.ReportURI)
	assert.NotNil(t, done.CompletedAt)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	s := NewStore()
	q := NewQueue(10, 1, s)
	q.backoff = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.DetectUserJob) error {
		calls.Add(1)
		return errors.New("store unavailable")
	}))
	defer q.Close()

	job := &jobs.DetectUserJob{UserID: "u1", MaxRetries: 2}
	require.NoError(t, q.PublishDetectUser(ctx, job))

	failed := waitForStatus(t, s, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, "store unavailable", failed.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Close())
	assert.Error(t, q.PublishDetectUser(context.Background(), &jobs.DetectUserJob{UserID: "u1"}))
	assert.Error(t, q.Start(context.Background(), nil))
	assert.NoError(t, q.Stop(context.Background()))
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveJob(ctx, &jobs.DetectUserJob{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base}))
	require.NoError(t, s.SaveJob(ctx, &jobs.DetectUserJob{JobID: "b", UserID: "u1", Status: jobs.JobStatusPending, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.SaveJob(ctx, &jobs.DetectUserJob{JobID: "c", UserID: "u2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(2 * time.Hour)}))
	assert.Error(t, s.SaveJob(ctx, &jobs.DetectUserJob{}))

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by user", jobs.JobFilter{UserID: "u1"}, []string{"b", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"c", "a"}},
		{"limit and offset", jobs.JobFilter{Offset: 1, Limit: 1}, []string{"b"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]string, len(list))
			for i, j := range list {
				got[i] = j.JobID
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_GetAndUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "x"), store.ErrNotFound)

	job := &jobs.DetectUserJob{JobID: "a", UserID: "u1", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))
	job.UserID = "mutated"

	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"))
	got, err := s.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}
