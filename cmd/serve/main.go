package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/config"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/db"
	qhttp "github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/http"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/logger"
	"github.com/Kva3ari4/A-World-Away-Hunting-for-Exoplanets-with-AI/ml"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "config file (optional)")
	modelPath := flag.String("model", "", "model path, overrides model.path")
	port := flag.Int("port", 0, "listen port, overrides http.port")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *port > 0 {
		cfg.Http.Port = *port
	}

	log := logger.Must(cfg.Log)
	defer log.Sync()
	zap.ReplaceGlobals(log)

	// 2. Load the model once; it is read-only from here on
	model, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
	if err != nil {
		log.Fatal("failed to load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	info := model.Info()
	log.Info("model loaded",
		zap.String("path", cfg.Model.Path),
		zap.Int("trees", info.NumTrees),
		zap.Strings("classes", info.Classes),
		zap.Float64("accuracy", info.Metadata.Accuracy),
	)

	// 3. Training log is optional for serving
	var trainingLog qhttp.TrainingLogSource
	if cfg.Database.Path != "" {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			log.Warn("training log unavailable", zap.String("path", cfg.Database.Path), zap.Error(err))
		} else {
			defer db.Close()
			trainingLog = db.LoadTrainingLog
		}
	}

	api, err := qhttp.NewAPI(model, cfg.Http.PredictionCacheSize, trainingLog, log)
	if err != nil {
		log.Fatal("failed to build API", zap.Error(err))
	}

	// 4. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfigFrom(cfg), api, log)
	log.Info("serving predictions", zap.String("addr", server.Addr()), zap.Int("cache_size", cfg.Http.PredictionCacheSize))
	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errc:
		if err == nil {
			err = errors.New("server stopped unexpectedly")
		}
		log.Fatal("HTTP server failed", zap.Error(err))
	}

	if err := server.Stop(); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("exiting")
}

func defaultConfigPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}
