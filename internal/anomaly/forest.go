package anomaly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// ErrModelScores is returned when the outlier model produces unusable scores.
var ErrModelScores = errors.New("outlier model produced non-numeric scores")

// eulerGamma is used in the harmonic number approximation.
const eulerGamma = 0.5772156649

// OutlierModel fits on a feature matrix and scores every row.
// Lower scores are more anomalous; negative means outside the expected
// inlier fraction.
type OutlierModel interface {
	FitScore(ctx context.Context, features [][]float64) ([]float64, error)
}

// ForestConfig configures the isolation forest.
type ForestConfig struct {
	Trees         int     // ensemble size
	MaxSamples    int     // per-tree sample size; 0 means min(256, n)
	Contamination float64 // expected outlier fraction
	MaxFeatures   int     // 0 means every feature
	Seed          int64   // 0 seeds from the clock
}

// DefaultForestConfig returns 100 trees, auto sampling, contamination 0.1
// and the full feature width.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:         100,
		Contamination: 0.1,
	}
}

// IsolationForestModel builds a fresh forest for every FitScore call, so a
// single value can be shared between goroutines.
type IsolationForestModel struct {
	Config ForestConfig
}

// FitScore implements OutlierModel.
func (m IsolationForestModel) FitScore(ctx context.Context, features [][]float64) ([]float64, error) {
	f := NewIsolationForest(m.Config)
	if err := f.Fit(ctx, features); err != nil {
		return nil, err
	}
	return f.DecisionFunction(features), nil
}

type isolationNode struct {
	feature int
	split   float64
	left    *isolationNode
	right   *isolationNode
	size    int
	leaf    bool
}

// IsolationForest is an ensemble of random isolation trees.
type IsolationForest struct {
	cfg      ForestConfig
	rng      *rand.Rand
	trees    []*isolationNode
	psi      int
	features []int
	offset   float64
}

// NewIsolationForest creates an unfitted forest.
func NewIsolationForest(cfg ForestConfig) *IsolationForest {
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &IsolationForest{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Fit grows the trees and computes the decision offset from the training scores.
func (f *IsolationForest) Fit(ctx context.Context, data [][]float64) error {
	if len(data) < 2 {
		return fmt.Errorf("fit isolation forest: need at least 2 rows, got %d", len(data))
	}
	width := len(data[0])

	f.psi = f.cfg.MaxSamples
	if f.psi <= 0 {
		f.psi = 256
	}
	if f.psi > len(data) {
		f.psi = len(data)
	}

	nFeatures := f.cfg.MaxFeatures
	if nFeatures <= 0 || nFeatures > width {
		nFeatures = width
	}
	f.features = f.rng.Perm(width)[:nFeatures]

	maxDepth := int(math.Ceil(math.Log2(float64(f.psi))))
	f.trees = make([]*isolationNode, 0, f.cfg.Trees)

	for i := 0; i < f.cfg.Trees; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.trees = append(f.trees, f.buildTree(f.sample(data), 0, maxDepth))
	}

	f.offset = percentile(f.ScoreSamples(data), 100*f.cfg.Contamination)
	return nil
}

// sample draws psi rows without replacement (partial Fisher-Yates).
func (f *IsolationForest) sample(data [][]float64) [][]float64 {
	idx := make([]int, len(data))
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < f.psi; i++ {
		j := i + f.rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	out := make([][]float64, f.psi)
	for i := 0; i < f.psi; i++ {
		out[i] = data[idx[i]]
	}
	return out
}

func (f *IsolationForest) buildTree(data [][]float64, depth, maxDepth int) *isolationNode {
	if len(data) <= 1 || depth >= maxDepth {
		return &isolationNode{leaf: true, size: len(data)}
	}

	// Only features that still vary can split the node.
	type span struct {
		feature  int
		min, max float64
	}
	var candidates []span
	for _, feat := range f.features {
		lo, hi := data[0][feat], data[0][feat]
		for _, row := range data[1:] {
			lo = math.Min(lo, row[feat])
			hi = math.Max(hi, row[feat])
		}
		if lo < hi {
			candidates = append(candidates, span{feat, lo, hi})
		}
	}
	if len(candidates) == 0 {
		return &isolationNode{leaf: true, size: len(data)}
	}

	c := candidates[f.rng.Intn(len(candidates))]
	split := c.min + f.rng.Float64()*(c.max-c.min)

	var left, right [][]float64
	for _, row := range data {
		if row[c.feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isolationNode{leaf: true, size: len(data)}
	}

	return &isolationNode{
		feature: c.feature,
		split:   split,
		left:    f.buildTree(left, depth+1, maxDepth),
		right:   f.buildTree(right, depth+1, maxDepth),
		size:    len(data),
	}
}

func pathLength(x []float64, node *isolationNode, depth int) float64 {
	if node.leaf {
		return float64(depth) + averagePathLength(node.size)
	}
	if x[node.feature] < node.split {
		return pathLength(x, node.left, depth+1)
	}
	return pathLength(x, node.right, depth+1)
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST search.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	nf := float64(n)
	return 2*(math.Log(nf-1)+eulerGamma) - 2*(nf-1)/nf
}

// ScoreSamples returns the negated anomaly score -2^(-E[h]/c(psi)) for each
// row, in [-1, 0); lower is more anomalous.
func (f *IsolationForest) ScoreSamples(data [][]float64) []float64 {
	norm := averagePathLength(f.psi)
	scores := make([]float64, len(data))
	for i, x := range data {
		var total float64
		for _, t := range f.trees {
			total += pathLength(x, t, 0)
		}
		avg := total / float64(len(f.trees))
		scores[i] = -math.Pow(2, -avg/norm)
	}
	return scores
}

// DecisionFunction shifts ScoreSamples so that the contamination quantile
// sits at zero.
func (f *IsolationForest) DecisionFunction(data [][]float64) []float64 {
	scores := f.ScoreSamples(data)
	for i := range scores {
		scores[i] -= f.offset
	}
	return scores
}

// percentile uses linear interpolation between closest ranks.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}
