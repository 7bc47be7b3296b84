package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/config"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/db"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/logger"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/ml"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/training"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "config file (optional)")
	dataPath := flag.String("data", "", "KOI CSV path, overrides data.path")
	modelPath := flag.String("model", "", "model output path, overrides model.path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}

	log := logger.Must(cfg.Log)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("training failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ds, err := ml.LoadDataset(cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	log.Info("dataset loaded", zap.String("path", cfg.Data.Path), zap.Int("rows", ds.Len()))

	opts := training.OptionsFromConfig(cfg.Training)
	opts.Logger = log
	result, err := training.Run(ctx, opts, ds)
	if err != nil {
		return err
	}

	fmt.Printf("Accuracy: %.3f\n", result.Report.Accuracy)
	log.Info("model evaluated",
		zap.Float64("accuracy", result.Report.Accuracy),
		zap.Float64("macro_precision", result.Report.MacroPrecision),
		zap.Float64("macro_recall", result.Report.MacroRecall),
		zap.Duration("duration", result.Duration),
	)

	if err := result.Classifier.Save(cfg.Model.Path); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	log.Info("model saved", zap.String("path", cfg.Model.Path))

	if cfg.Database.Path == "" {
		return nil
	}
	if err := db.InitDB(cfg.Database.Path); err != nil {
		return fmt.Errorf("open training log: %w", err)
	}
	defer db.Close()

	meta := result.Classifier.Metadata
	return db.SaveTrainingLog(db.TrainingLog{
		RunID:      meta.RunID,
		ModelName:  result.Classifier.ModelType,
		Accuracy:   result.Report.Accuracy,
		Precision:  result.Report.MacroPrecision,
		Recall:     result.Report.MacroRecall,
		TrainedAt:  meta.TrainedAt,
		DataPoints: meta.TrainSize,
		TestPoints: meta.TestSize,
		ModelPath:  cfg.Model.Path,
	})
}

// defaultConfigPath returns config.yaml when it exists in the working
// directory, so the binary also runs with built-in defaults.
func defaultConfigPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}
