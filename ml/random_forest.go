package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
)

const (
	ClassWeightNone     = ""
	ClassWeightBalanced = "balanced"
)

type ForestConfig struct {
	NumTrees        int
	MaxDepth        int
	MaxFeatures     string // "sqrt", "log2", "all" or a count
	MinSamplesSplit int
	Bootstrap       bool
	ClassWeight     string
	Seed            int64
	Workers         int
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:        100,
		MaxDepth:        0,
		MaxFeatures:     "sqrt",
		MinSamplesSplit: 2,
		Bootstrap:       true,
		ClassWeight:     ClassWeightBalanced,
		Seed:            42,
	}
}

// ResolveMaxFeatures turns a max-features setting into a feature count for
// n input features.
func ResolveMaxFeatures(setting string, n int) (int, error) {
	switch setting {
	case "", "all":
		return n, nil
	case "sqrt":
		return max(1, int(math.Sqrt(float64(n)))), nil
	case "log2":
		return max(1, int(math.Log2(float64(n)))), nil
	}
	count, err := strconv.Atoi(setting)
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("invalid max features %q", setting)
	}
	return min(count, n), nil
}

// ClassWeights returns per-class sample weights. "balanced" weighs each
// class by n / (classes present * class count).
func ClassWeights(labels []int, numClasses int, mode string) ([]float64, error) {
	weights := make([]float64, numClasses)
	switch mode {
	case ClassWeightNone:
		for i := range weights {
			weights[i] = 1
		}
		return weights, nil
	case ClassWeightBalanced:
	default:
		return nil, fmt.Errorf("unsupported class weight %q", mode)
	}

	counts := ClassCounts(labels, numClasses)
	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	for i, c := range counts {
		if c > 0 {
			weights[i] = float64(len(labels)) / (float64(present) * float64(c))
		}
	}
	return weights, nil
}

type RandomForest struct {
	config      ForestConfig
	numClasses  int
	numFeatures int
	trees       []*DecisionTree
}

func NewRandomForest(config ForestConfig) *RandomForest {
	return &RandomForest{config: config}
}

// Fit trains NumTrees trees on bootstrap samples. Per-tree seeds are drawn
// from Seed before any tree is built, so the result does not depend on
// Workers.
func (rf *RandomForest) Fit(features [][]float64, labels []int, numClasses int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if rf.config.NumTrees <= 0 {
		return fmt.Errorf("invalid tree count %d", rf.config.NumTrees)
	}
	numFeatures := len(features[0])
	maxFeatures, err := ResolveMaxFeatures(rf.config.MaxFeatures, numFeatures)
	if err != nil {
		return err
	}
	if numClasses <= 0 {
		for _, label := range labels {
			numClasses = max(numClasses, label+1)
		}
	}
	classWeights, err := ClassWeights(labels, numClasses, rf.config.ClassWeight)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(rf.config.Seed))
	seeds := make([]int64, rf.config.NumTrees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	treeConfig := TreeConfig{
		MaxDepth:        rf.config.MaxDepth,
		MinSamplesSplit: rf.config.MinSamplesSplit,
		MaxFeatures:     maxFeatures,
	}

	workers := rf.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, rf.config.NumTrees)

	trees := make([]*DecisionTree, rf.config.NumTrees)
	errs := make([]error, rf.config.NumTrees)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				trees[i], errs[i] = rf.fitTree(treeConfig, features, labels, classWeights, numClasses, seeds[i])
			}
		}()
	}
	for i := range trees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	rf.trees = trees
	rf.numClasses = numClasses
	rf.numFeatures = numFeatures
	return nil
}

func (rf *RandomForest) fitTree(config TreeConfig, features [][]float64, labels []int, classWeights []float64, numClasses int, seed int64) (*DecisionTree, error) {
	rng := rand.New(rand.NewSource(seed))
	n := len(labels)
	counts := make([]int, n)
	if rf.config.Bootstrap {
		for i := 0; i < n; i++ {
			counts[rng.Intn(n)]++
		}
	} else {
		for i := range counts {
			counts[i] = 1
		}
	}

	weights := make([]float64, n)
	for i, c := range counts {
		weights[i] = float64(c) * classWeights[labels[i]]
	}

	tree := NewDecisionTree(config)
	if err := tree.Fit(features, labels, weights, numClasses, rng); err != nil {
		return nil, err
	}
	return tree, nil
}

// Predict returns the class with the highest mean tree probability and
// that probability.
func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	proba, err := rf.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	label := argmax(proba)
	return label, proba[label], nil
}

func (rf *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(rf.trees) == 0 {
		return nil, ErrNotTrained
	}
	if len(features) != rf.numFeatures {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(features), rf.numFeatures)
	}
	proba := make([]float64, rf.numClasses)
	for _, tree := range rf.trees {
		p, err := tree.PredictProba(features)
		if err != nil {
			return nil, err
		}
		for i, v := range p {
			proba[i] += v
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.trees))
	}
	return proba, nil
}

// Score returns the accuracy on the given samples.
func (rf *RandomForest) Score(features [][]float64, labels []int) (float64, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return 0, errors.New("features and labels must be non-empty and equal length")
	}
	correct := 0
	for i, row := range features {
		label, _, err := rf.Predict(row)
		if err != nil {
			return 0, err
		}
		if label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(features)), nil
}

func (rf *RandomForest) NumTrees() int {
	return len(rf.trees)
}

func (rf *RandomForest) NumFeatures() int {
	return rf.numFeatures
}

func (rf *RandomForest) NumClasses() int {
	return rf.numClasses
}

type forestJSON struct {
	NumClasses      int             `json:"num_classes"`
	NumFeatures     int             `json:"num_features"`
	MaxDepth        int             `json:"max_depth"`
	MaxFeatures     string          `json:"max_features"`
	MinSamplesSplit int             `json:"min_samples_split"`
	Bootstrap       bool            `json:"bootstrap"`
	ClassWeight     string          `json:"class_weight"`
	Seed            int64           `json:"seed"`
	Trees           []*DecisionTree `json:"trees"`
}

func (rf *RandomForest) MarshalJSON() ([]byte, error) {
	if len(rf.trees) == 0 {
		return nil, ErrNotTrained
	}
	return json.Marshal(forestJSON{
		NumClasses:      rf.numClasses,
		NumFeatures:     rf.numFeatures,
		MaxDepth:        rf.config.MaxDepth,
		MaxFeatures:     rf.config.MaxFeatures,
		MinSamplesSplit: rf.config.MinSamplesSplit,
		Bootstrap:       rf.config.Bootstrap,
		ClassWeight:     rf.config.ClassWeight,
		Seed:            rf.config.Seed,
		Trees:           rf.trees,
	})
}

func (rf *RandomForest) UnmarshalJSON(data []byte) error {
	var payload forestJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if len(payload.Trees) == 0 {
		return ErrNotTrained
	}
	for i, tree := range payload.Trees {
		if tree == nil || tree.numClasses != payload.NumClasses {
			return fmt.Errorf("tree %d: class count mismatch", i)
		}
	}
	rf.config = ForestConfig{
		NumTrees:        len(payload.Trees),
		MaxDepth:        payload.MaxDepth,
		MaxFeatures:     payload.MaxFeatures,
		MinSamplesSplit: payload.MinSamplesSplit,
		Bootstrap:       payload.Bootstrap,
		ClassWeight:     payload.ClassWeight,
		Seed:            payload.Seed,
	}
	rf.numClasses = payload.NumClasses
	rf.numFeatures = payload.NumFeatures
	rf.trees = payload.Trees
	return nil
}
