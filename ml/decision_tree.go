package ml

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// featureThreshold is the smallest gap between two sorted values that is
// treated as distinct when searching split points.
const featureThreshold = 1e-7

type TreeConfig struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MaxFeatures     int // 0 means all features
}

type DecisionTree struct {
	config     TreeConfig
	numClasses int
	nodes      []TreeNode
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

func NewDecisionTree(config TreeConfig) *DecisionTree {
	if config.MinSamplesSplit < 2 {
		config.MinSamplesSplit = 2
	}
	return &DecisionTree{config: config}
}

// Fit grows the tree on the given rows. weights may be nil, in which case
// every sample counts once. rng drives the feature order at each node.
func (dt *DecisionTree) Fit(features [][]float64, labels []int, weights []float64, numClasses int, rng *rand.Rand) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if weights != nil && len(weights) != len(labels) {
		return errors.New("weights and labels size mismatch")
	}
	featureCount := len(features[0])
	if featureCount == 0 {
		return errors.New("samples have no features")
	}
	for i, row := range features {
		if len(row) != featureCount {
			return fmt.Errorf("row %d: %w", i, ErrDimensionMismatch)
		}
	}
	if numClasses <= 0 {
		numClasses = slices.Max(labels) + 1
	}
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return fmt.Errorf("row %d: label %d outside [0,%d)", i, label, numClasses)
		}
	}
	if weights == nil {
		weights = make([]float64, len(labels))
		for i := range weights {
			weights[i] = 1
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	if dt.config.MinSamplesSplit < 2 {
		dt.config.MinSamplesSplit = 2
	}

	maxFeatures := dt.config.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > featureCount {
		maxFeatures = featureCount
	}

	b := &treeBuilder{
		features:    features,
		labels:      labels,
		weights:     weights,
		numClasses:  numClasses,
		maxFeatures: maxFeatures,
		rng:         rng,
	}
	samples := make([]int, 0, len(labels))
	for i, w := range weights {
		if w > 0 {
			samples = append(samples, i)
		}
	}
	if len(samples) == 0 {
		return errors.New("all sample weights are zero")
	}

	dt.numClasses = numClasses
	dt.nodes = dt.nodes[:0]
	dt.buildNode(b, samples, 0)
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, 0, err
	}
	return leaf.ClassLabel, leaf.Value[leaf.ClassLabel], nil
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), leaf.Value...), nil
}

func (dt *DecisionTree) NodeCount() int {
	return len(dt.nodes)
}

// Depth returns the length of the longest root-to-leaf path.
func (dt *DecisionTree) Depth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	var walk func(idx int) int
	walk = func(idx int) int {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return 0
		}
		return 1 + max(walk(node.LeftChild), walk(node.RightChild))
	}
	return walk(0)
}

func (dt *DecisionTree) leaf(features []float64) (*TreeNode, error) {
	if len(dt.nodes) == 0 {
		return nil, ErrNotTrained
	}
	idx := 0
	for {
		node := &dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return nil, ErrDimensionMismatch
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx <= 0 || idx >= len(dt.nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
}

type treeJSON struct {
	NumClasses int        `json:"num_classes"`
	Nodes      []TreeNode `json:"nodes"`
}

func (dt *DecisionTree) MarshalJSON() ([]byte, error) {
	if len(dt.nodes) == 0 {
		return nil, ErrNotTrained
	}
	return json.Marshal(treeJSON{NumClasses: dt.numClasses, Nodes: dt.nodes})
}

func (dt *DecisionTree) UnmarshalJSON(data []byte) error {
	var payload treeJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if len(payload.Nodes) == 0 {
		return ErrNotTrained
	}
	for i, node := range payload.Nodes {
		if node.IsLeaf {
			if len(node.Value) != payload.NumClasses || node.ClassLabel < 0 || node.ClassLabel >= payload.NumClasses {
				return fmt.Errorf("node %d: malformed leaf", i)
			}
			continue
		}
		if node.LeftChild <= i || node.RightChild <= i || node.LeftChild >= len(payload.Nodes) || node.RightChild >= len(payload.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	dt.numClasses = payload.NumClasses
	dt.nodes = payload.Nodes
	return nil
}

type treeBuilder struct {
	features    [][]float64
	labels      []int
	weights     []float64
	numClasses  int
	maxFeatures int
	rng         *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

// buildNode appends the subtree for samples in pre-order and returns the
// index of its root. Child indices are absolute.
func (dt *DecisionTree) buildNode(b *treeBuilder, samples []int, depth int) int {
	dist, total := b.distribution(samples)
	idx := len(dt.nodes)
	dt.nodes = append(dt.nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: argmax(dist),
		IsLeaf:     true,
		Value:      normalize(dist, total),
	})

	if dt.config.MaxDepth > 0 && depth >= dt.config.MaxDepth {
		return idx
	}
	if len(samples) < dt.config.MinSamplesSplit || isPure(dist) {
		return idx
	}

	best, ok := b.findBestSplit(samples, dist, total)
	if !ok {
		return idx
	}
	left, right := partition(b.features, samples, best.feature, best.threshold)
	if len(left) == 0 || len(right) == 0 {
		return idx
	}

	leftIdx := dt.buildNode(b, left, depth+1)
	rightIdx := dt.buildNode(b, right, depth+1)

	node := &dt.nodes[idx]
	node.FeatureIdx = best.feature
	node.Threshold = best.threshold
	node.LeftChild = leftIdx
	node.RightChild = rightIdx
	node.IsLeaf = false
	node.Value = nil
	return idx
}

func (b *treeBuilder) distribution(samples []int) ([]float64, float64) {
	dist := make([]float64, b.numClasses)
	total := 0.0
	for _, s := range samples {
		dist[b.labels[s]] += b.weights[s]
		total += b.weights[s]
	}
	return dist, total
}

// findBestSplit evaluates at least maxFeatures non-constant features in
// random order and keeps going until one of them yields a valid split.
func (b *treeBuilder) findBestSplit(samples []int, parent []float64, total float64) (split, bool) {
	best := split{feature: -1, impurity: math.Inf(1)}
	order := b.rng.Perm(len(b.features[0]))
	sorted := make([]int, len(samples))
	left := make([]float64, b.numClasses)
	right := make([]float64, b.numClasses)

	visited := 0
	for _, featureIdx := range order {
		if visited >= b.maxFeatures && best.feature >= 0 {
			break
		}
		copy(sorted, samples)
		slices.SortStableFunc(sorted, func(x, y int) int {
			return cmp.Compare(b.features[x][featureIdx], b.features[y][featureIdx])
		})
		lo := b.features[sorted[0]][featureIdx]
		hi := b.features[sorted[len(sorted)-1]][featureIdx]
		if hi <= lo+featureThreshold {
			continue
		}
		visited++

		clear(left)
		leftWeight := 0.0
		for i := 0; i < len(sorted)-1; i++ {
			s := sorted[i]
			left[b.labels[s]] += b.weights[s]
			leftWeight += b.weights[s]

			current := b.features[s][featureIdx]
			next := b.features[sorted[i+1]][featureIdx]
			if next <= current+featureThreshold {
				continue
			}
			rightWeight := total - leftWeight
			if leftWeight <= 0 || rightWeight <= 0 {
				continue
			}
			for c := range right {
				right[c] = parent[c] - left[c]
			}
			impurity := (leftWeight*gini(left, leftWeight) + rightWeight*gini(right, rightWeight)) / total
			if impurity < best.impurity {
				threshold := current/2 + next/2
				if threshold == next || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = current
				}
				best = split{feature: featureIdx, threshold: threshold, impurity: impurity}
			}
		}
	}
	return best, best.feature >= 0
}

func partition(features [][]float64, samples []int, featureIdx int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(samples)/2)
	right := make([]int, 0, len(samples)/2)
	for _, s := range samples {
		if features[s][featureIdx] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	return left, right
}

func gini(dist []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	impurity := 1.0
	for _, w := range dist {
		p := w / total
		impurity -= p * p
	}
	return impurity
}

func isPure(dist []float64) bool {
	nonZero := 0
	for _, w := range dist {
		if w > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
