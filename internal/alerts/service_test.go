package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/spend-anomaly/internal/domain"
	"github.com/dvloznov/spend-anomaly/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	s := memory.NewStore()
	svc := NewService(s)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return svc, s
}

func TestService_Set(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	saved, err := svc.Set(ctx, domain.CategoryAlert{UserID: "u1", Category: " dining ", Threshold: 80, Active: true})
	require.NoError(t, err)
	assert.Equal(t, "dining", saved.Category)
	assert.False(t, saved.UpdatedAt.IsZero())

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 80.0, list[0].Threshold)

	tests := []struct {
		name  string
		alert domain.CategoryAlert
	}{
		{"missing category", domain.CategoryAlert{UserID: "u1", Threshold: 10}},
		{"zero threshold", domain.CategoryAlert{UserID: "u1", Category: "dining"}},
		{"negative threshold", domain.CategoryAlert{UserID: "u1", Category: "dining", Threshold: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Set(ctx, tt.alert)
			assert.ErrorIs(t, err, ErrInvalidAlert)
		})
	}
}

func TestService_ListEmpty(t *testing.T) {
	svc, _ := newTestService()
	list, err := svc.List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestService_ApplyFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("normal raises threshold", func(t *testing.T) {
		svc, s := newTestService()
		require.NoError(t, s.UpsertAlert(ctx, domain.CategoryAlert{UserID: "u1", Category: "dining", Threshold: 50, Active: true}))

		res, err := svc.ApplyFeedback(ctx, domain.Feedback{UserID: "u1", Category: "dining", Amount: 72.4, IsNormal: true})
		require.NoError(t, err)
		assert.True(t, res.ThresholdRaised)
		assert.Equal(t, 75.0, res.NewThreshold)
		assert.False(t, res.AlertSet)

		list, err := s.ListAlerts(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 75.0, list[0].Threshold)
		assert.True(t, list[0].Active)
	})

	t.Run("normal below threshold", func(t *testing.T) {
		svc, s := newTestService()
		require.NoError(t, s.UpsertAlert(ctx, domain.CategoryAlert{UserID: "u1", Category: "dining", Threshold: 100, Active: true}))

		res, err := svc.ApplyFeedback(ctx, domain.Feedback{UserID: "u1", Category: "dining", Amount: 60, IsNormal: true})
		require.NoError(t, err)
		assert.False(t, res.ThresholdRaised)
	})

	t.Run("normal without alert", func(t *testing.T) {
		svc, s := newTestService()
		res, err := svc.ApplyFeedback(ctx, domain.Feedback{UserID: "u1", Category: "dining", Amount: 60, IsNormal: true})
		require.NoError(t, err)
		assert.False(t, res.ThresholdRaised)

		list, err := s.ListAlerts(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("set alert", func(t *testing.T) {
		svc, s := newTestService()
		res, err := svc.ApplyFeedback(ctx, domain.Feedback{UserID: "u1", Category: "fuel", Amount: 90, SetAlert: true, AlertThreshold: 60})
		require.NoError(t, err)
		assert.True(t, res.AlertSet)

		list, err := s.ListAlerts(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 60.0, list[0].Threshold)
		assert.True(t, list[0].Active)
	})

	t.Run("set alert without threshold", func(t *testing.T) {
		svc, _ := newTestService()
		res, err := svc.ApplyFeedback(ctx, domain.Feedback{UserID: "u1", Category: "fuel", SetAlert: true})
		require.NoError(t, err)
		assert.False(t, res.AlertSet)
	})

	t.Run("missing category", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.ApplyFeedback(ctx, domain.Feedback{UserID: "u1"})
		assert.ErrorIs(t, err, ErrInvalidAlert)
	})
}

func TestRoundUpToFive(t *testing.T) {
	assert.Equal(t, 75.0, RoundUpToFive(72.4))
	assert.Equal(t, 75.0, RoundUpToFive(75))
	assert.Equal(t, 5.0, RoundUpToFive(0.01))
}
