package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/spend-anomaly/internal/jobs"
)

type recordingPublisher struct {
	mu    sync.Mutex
	users []string
}

func (p *recordingPublisher) PublishDetectUser(ctx context.Context, job *jobs.DetectUserJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, job.UserID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

func TestSchedule(t *testing.T) {
	p := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		schedule(ctx, p, []string{"u1", "u2"}, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.count() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, []string{"u1", "u2"}, p.users[:2])
}
