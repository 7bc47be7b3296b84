// Package training runs the offline pipeline: split, impute, fit and
// evaluate a random forest on a KOI dataset.
package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/config"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/ml"
)

type Options struct {
	TestRatio   float64
	Seed        int64
	ImputeScope string
	Forest      ml.ForestConfig
	Logger      *zap.Logger
}

func DefaultOptions() Options {
	forest := ml.DefaultForestConfig()
	return Options{
		TestRatio:   0.2,
		Seed:        forest.Seed,
		ImputeScope: config.ImputeScopeTrain,
		Forest:      forest,
	}
}

// OptionsFromConfig maps the training section of the config file.
func OptionsFromConfig(t config.Training) Options {
	return Options{
		TestRatio:   t.TestRatio,
		Seed:        t.Seed,
		ImputeScope: t.ImputeScope,
		Forest: ml.ForestConfig{
			NumTrees:        t.NEstimators,
			MaxDepth:        t.MaxDepth,
			MaxFeatures:     t.MaxFeatures,
			MinSamplesSplit: t.MinSamplesSplit,
			Bootstrap:       t.Bootstrap,
			ClassWeight:     t.ClassWeight,
			Seed:            t.Seed,
			Workers:         t.Workers,
		},
	}
}

type Result struct {
	Classifier   *ml.Classifier
	Report       ml.Report
	TrainIndices []int
	TestIndices  []int
	Duration     time.Duration
}

// Run trains a classifier on ds and scores it on the held-out partition.
// The dataset is not modified.
func Run(ctx context.Context, opts Options, ds *ml.Dataset) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	start := time.Now()

	labels, classes, err := ml.EncodeLabels(ds.Labels)
	if err != nil {
		return nil, err
	}
	trainIdx, testIdx, err := ml.StratifiedSplit(labels, opts.TestRatio, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	log.Info("dataset split",
		zap.Int("rows", ds.Len()),
		zap.Int("train", len(trainIdx)),
		zap.Int("test", len(testIdx)),
		zap.Strings("classes", classes),
	)

	imputer := ml.NewImputer(ds.Features)
	switch opts.ImputeScope {
	case config.ImputeScopeTrain, "":
		err = imputer.Fit(ds.Rows, trainIdx)
	case config.ImputeScopeFull:
		err = imputer.Fit(ds.Rows, nil)
	default:
		err = fmt.Errorf("unknown impute scope %q", opts.ImputeScope)
	}
	if err != nil {
		return nil, fmt.Errorf("impute: %w", err)
	}
	rows, err := imputer.Transform(ds.Rows)
	if err != nil {
		return nil, fmt.Errorf("impute: %w", err)
	}
	log.Debug("medians fitted", zap.Any("medians", imputer.Medians()), zap.Any("missing", ds.MissingCount()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainX, trainY := ml.SelectRows(rows, labels, trainIdx)
	testX, testY := ml.SelectRows(rows, labels, testIdx)

	forestConfig := opts.Forest
	forestConfig.Seed = opts.Seed
	forest := ml.NewRandomForest(forestConfig)
	if err := forest.Fit(trainX, trainY, len(classes)); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	log.Info("forest fitted", zap.Int("trees", forest.NumTrees()), zap.Duration("elapsed", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report, err := ml.Evaluate(forest, testX, testY, classes)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	scope := opts.ImputeScope
	if scope == "" {
		scope = config.ImputeScopeTrain
	}
	classifier, err := ml.NewClassifier(ds.Features, classes, forest, imputer.Medians(), ml.Metadata{
		RunID:       uuid.NewString(),
		Accuracy:    report.Accuracy,
		TrainSize:   len(trainIdx),
		TestSize:    len(testIdx),
		Seed:        opts.Seed,
		ImputeScope: scope,
		TrainedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Classifier:   classifier,
		Report:       report,
		TrainIndices: trainIdx,
		TestIndices:  testIdx,
		Duration:     time.Since(start),
	}, nil
}
