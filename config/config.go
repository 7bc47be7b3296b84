// Package config loads the YAML configuration shared by the train and serve
// commands.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	ImputeScopeTrain = "train"
	ImputeScopeFull  = "full"
)

type Config struct {
	Data struct {
		Path string `yaml:"path"`
	} `yaml:"data"`
	Model struct {
		Type string `yaml:"type"`
		Path string `yaml:"path"`
	} `yaml:"model"`
	Training Training `yaml:"training"`
	Http     struct {
		Port                int           `yaml:"port"`
		Timeout             time.Duration `yaml:"timeout"`
		MaxBodyBytes        int64         `yaml:"max_body_bytes"`
		AllowedOrigins      []string      `yaml:"allowed_origins"`
		PredictionCacheSize int           `yaml:"prediction_cache_size"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log Log `yaml:"log"`
}

type Training struct {
	TestRatio       float64 `yaml:"test_ratio"`
	Seed            int64   `yaml:"seed"`
	NEstimators     int     `yaml:"n_estimators"`
	MaxDepth        int     `yaml:"max_depth"`
	MaxFeatures     string  `yaml:"max_features"`
	MinSamplesSplit int     `yaml:"min_samples_split"`
	Bootstrap       bool    `yaml:"bootstrap"`
	ClassWeight     string  `yaml:"class_weight"`
	ImputeScope     string  `yaml:"impute_scope"`
	Workers         int     `yaml:"workers"`
}

type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the built-in settings used when no file is given.
func Default() *Config {
	var c Config
	c.Data.Path = "cumulative_2025.10.03_22.30.54.csv"
	c.Model.Type = "random_forest"
	c.Model.Path = "forest_model.json"
	c.Training = Training{
		TestRatio:       0.2,
		Seed:            42,
		NEstimators:     100,
		MaxDepth:        0,
		MaxFeatures:     "sqrt",
		MinSamplesSplit: 2,
		Bootstrap:       true,
		ClassWeight:     "balanced",
		ImputeScope:     ImputeScopeTrain,
	}
	c.Http.Port = 5000
	c.Http.Timeout = 30 * time.Second
	c.Http.MaxBodyBytes = 1 << 20
	c.Http.AllowedOrigins = []string{"*"}
	c.Http.PredictionCacheSize = 1024
	c.Log = Log{
		Level:      "info",
		Format:     "console",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
	return &c
}

// Load reads path over the defaults. An empty path yields Default().
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	t := c.Training
	if t.TestRatio <= 0 || t.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio %.3f outside (0,1)", t.TestRatio)
	}
	if t.NEstimators <= 0 {
		return errors.New("training.n_estimators must be positive")
	}
	if t.MaxDepth < 0 {
		return errors.New("training.max_depth must not be negative")
	}
	switch t.MaxFeatures {
	case "", "sqrt", "log2", "all":
	default:
		if n, err := strconv.Atoi(t.MaxFeatures); err != nil || n <= 0 {
			return fmt.Errorf("training.max_features %q is not sqrt, log2, all or a positive count", t.MaxFeatures)
		}
	}
	switch t.ClassWeight {
	case "", "balanced":
	default:
		return fmt.Errorf("training.class_weight %q is not supported", t.ClassWeight)
	}
	switch t.ImputeScope {
	case ImputeScopeTrain, ImputeScopeFull:
	default:
		return fmt.Errorf("training.impute_scope %q must be %q or %q", t.ImputeScope, ImputeScopeTrain, ImputeScopeFull)
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.PredictionCacheSize < 0 {
		return errors.New("http.prediction_cache_size must not be negative")
	}
	return nil
}
