package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/spend-anomaly/internal/domain"
)

func TestExtractFeatures(t *testing.T) {
	now := time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		{ID: "ok", Amount: domain.ParseAmount("12.5"), Date: "2024-03-15"},
		{ID: "bad", Amount: domain.ParseAmount("twelve"), Date: "someday"},
		{ID: "old", Amount: domain.ParseAmount("-3"), Date: "2023-01-01T10:00:00Z"},
	}

	features := ExtractFeatures(context.Background(), txs, now)
	require.Len(t, features, len(txs))
	for _, vec := range features {
		assert.Len(t, vec, FeatureWidth)
	}

	// 2024-03-15 is a Friday, fifteen days before now.
	assert.Equal(t, []float64{12.5, 15, 5, 0.5}, features[0])
	assert.Equal(t, []float64{0, 1, 0, 0.5}, features[1])
	assert.Equal(t, []float64{-3, 1, 0, 1}, features[2])
}

func TestExtractFeatures_FutureDateRecency(t *testing.T) {
	now := time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{{ID: "future", Amount: domain.ParseAmount("8"), Date: "2024-04-04"}}

	features := ExtractFeatures(context.Background(), txs, now)
	require.Len(t, features, 1)
	assert.Equal(t, 0.0, features[0][3])
}

func TestExtractFeatures_Empty(t *testing.T) {
	assert.Empty(t, ExtractFeatures(context.Background(), nil, time.Now()))
}
