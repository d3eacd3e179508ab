package anomaly

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forestData() [][]float64 {
	var data [][]float64
	for i := 0; i < 30; i++ {
		data = append(data, []float64{40 + float64(i%20), 15, 3, 0.4})
	}
	return append(data, []float64{5000, 15, 3, 0.4})
}

func TestIsolationForest_OutlierScoresLowest(t *testing.T) {
	data := forestData()
	model := IsolationForestModel{Config: ForestConfig{Trees: 100, Contamination: 0.1, Seed: 42}}

	scores, err := model.FitScore(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, scores, len(data))

	outlier := len(data) - 1
	for i, s := range scores {
		assert.False(t, math.IsNaN(s))
		if i != outlier {
			assert.Less(t, scores[outlier], s, "row %d scored below the outlier", i)
		}
	}
	assert.Less(t, scores[outlier], 0.0)
}

func TestIsolationForest_ContaminationShare(t *testing.T) {
	data := forestData()
	scores, err := IsolationForestModel{Config: ForestConfig{Trees: 50, Contamination: 0.1, Seed: 7}}.FitScore(context.Background(), data)
	require.NoError(t, err)

	negative := 0
	for _, s := range scores {
		if s < 0 {
			negative++
		}
	}
	// The offset is the 10th percentile, so roughly a tenth of rows fall below it.
	assert.GreaterOrEqual(t, negative, 1)
	assert.LessOrEqual(t, negative, 4)
}

func TestIsolationForest_Deterministic(t *testing.T) {
	cfg := ForestConfig{Trees: 20, Contamination: 0.1, Seed: 99}
	a, err := IsolationForestModel{Config: cfg}.FitScore(context.Background(), forestData())
	require.NoError(t, err)
	b, err := IsolationForestModel{Config: cfg}.FitScore(context.Background(), forestData())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIsolationForest_Errors(t *testing.T) {
	t.Run("too few rows", func(t *testing.T) {
		_, err := IsolationForestModel{Config: DefaultForestConfig()}.FitScore(context.Background(), [][]float64{{1, 2, 3, 4}})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := IsolationForestModel{Config: DefaultForestConfig()}.FitScore(ctx, forestData())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	// c(256) is about 10.24.
	assert.InDelta(t, 10.24, averagePathLength(256), 0.01)
}

func TestPercentile(t *testing.T) {
	xs := []float64{5, 1, 4, 2, 3}
	assert.Equal(t, 1.0, percentile(xs, 0))
	assert.Equal(t, 3.0, percentile(xs, 50))
	assert.Equal(t, 5.0, percentile(xs, 100))
	assert.InDelta(t, 1.4, percentile(xs, 10), 1e-9)
	assert.True(t, math.IsNaN(percentile(nil, 10)))
}
