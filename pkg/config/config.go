// Package config implements the yaml/json-backed AppConfig the cmd/train
// entrypoint loads, grounded in the teacher's pkg/config.AppConfig
// (LoadConfig/LoadAppConfig/Validate/applyEnvOverrides) adapted from an
// MLP-shaped ModelConfig to this engine's conv/pool/linear stack and
// SGD/SGDwithMomentum optimizer choice.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig collects the settings cmd/train needs end to end.
type AppConfig struct {
	Model      ModelConfig      `json:"model" yaml:"model"`
	Data       DataConfig       `json:"data" yaml:"data"`
	Training   TrainingConfig   `json:"training" yaml:"training"`
	Checkpoint string           `json:"checkpoint" yaml:"checkpoint"`
}

// ModelConfig describes the network to build: one of "mlp" (stacked
// Linear/LinearWithReLU) or "convnet" (Conv2dWithReLU -> MaxPool2d ->
// Linear), plus the conv/pool hyperparameters convnet needs.
type ModelConfig struct {
	Name        string `json:"name" yaml:"name"`
	InputSize   int    `json:"input_size" yaml:"input_size"`
	OutputSize  int    `json:"output_size" yaml:"output_size"`
	HiddenSizes []int  `json:"hidden_sizes" yaml:"hidden_sizes"`

	InChannels  int `json:"in_channels" yaml:"in_channels"`
	ConvKernel  int `json:"conv_kernel" yaml:"conv_kernel"`
	ConvStride  int `json:"conv_stride" yaml:"conv_stride"`
	ConvPadding int `json:"conv_padding" yaml:"conv_padding"`
	PoolKernel  int `json:"pool_kernel" yaml:"pool_kernel"`
	PoolStride  int `json:"pool_stride" yaml:"pool_stride"`
}

// DataConfig describes where to read the dataset from and how to batch it.
type DataConfig struct {
	Kind      string `json:"kind" yaml:"kind"` // "mnist" | "cifar10"
	Path      string `json:"path" yaml:"path"`
	LabelPath string `json:"label_path" yaml:"label_path"` // mnist only
	PathSep   string `json:"path_sep" yaml:"path_sep"`      // cifar10 only
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
	Shuffle   bool   `json:"shuffle" yaml:"shuffle"`
	Seed      int64  `json:"seed" yaml:"seed"`
	CacheSize int    `json:"cache_size" yaml:"cache_size"`
}

// TrainingConfig parameterizes the training loop.
type TrainingConfig struct {
	LR        float64 `json:"lr" yaml:"lr"`
	Epochs    int     `json:"epochs" yaml:"epochs"`
	Seed      int64   `json:"seed" yaml:"seed"`
	Optimizer string  `json:"optimizer" yaml:"optimizer"` // "sgd" | "momentum"
	Momentum  float64 `json:"momentum" yaml:"momentum"`
}

// DefaultAppConfig returns a configuration with safe defaults for a small
// MNIST convnet.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Model: ModelConfig{
			Name:        "convnet",
			InputSize:   784,
			OutputSize:  10,
			HiddenSizes: []int{128},
			InChannels:  1,
			ConvKernel:  3,
			ConvStride:  1,
			ConvPadding: 1,
			PoolKernel:  2,
			PoolStride:  2,
		},
		Data: DataConfig{
			Kind:      "mnist",
			Path:      "./data/train-images-idx3-ubyte",
			LabelPath: "./data/train-labels-idx1-ubyte",
			PathSep:   string(os.PathSeparator),
			BatchSize: 32,
			Shuffle:   true,
			Seed:      42,
			CacheSize: 8,
		},
		Training: TrainingConfig{
			LR:        0.01,
			Epochs:    10,
			Seed:      42,
			Optimizer: "sgd",
			Momentum:  0.9,
		},
		Checkpoint: "./checkpoints/model.ckpt",
	}
}

// LoadConfig reads path and unmarshals it into out. JSON (.json) and YAML
// (.yaml, .yml) are supported; an unrecognized extension tries JSON then
// YAML.
func LoadConfig(path string, out interface{}) error {
	if path == "" {
		return errors.New("LoadConfig: empty path")
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("LoadConfig: read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(bs, out); err != nil {
			return fmt.Errorf("LoadConfig: json unmarshal: %w", err)
		}
		return nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(bs, out); err != nil {
			return fmt.Errorf("LoadConfig: yaml unmarshal: %w", err)
		}
		return nil
	default:
		if err := json.Unmarshal(bs, out); err == nil {
			return nil
		}
		if err := yaml.Unmarshal(bs, out); err == nil {
			return nil
		}
		return fmt.Errorf("LoadConfig: unsupported format and parsing failed (json/yaml tried)")
	}
}

// LoadAppConfig loads AppConfig from path (or defaults if path is empty),
// applies env overrides, validates, and returns it.
func LoadAppConfig(path string) (AppConfig, error) {
	cfg := DefaultAppConfig()

	if path == "" {
		applyEnvOverrides(&cfg)
		return cfg, cfg.Validate()
	}

	if err := LoadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// Validate performs basic sanity checks on cfg, filling in one cross-field
// fallback along the way (Training.Seed from Data.Seed when unset).
func (c *AppConfig) Validate() error {
	if c.Model.InputSize <= 0 {
		return errors.New("Model.InputSize must be > 0")
	}
	if c.Model.OutputSize <= 0 {
		return errors.New("Model.OutputSize must be > 0")
	}
	if c.Data.BatchSize <= 0 {
		return errors.New("Data.BatchSize must be > 0")
	}
	if c.Training.Epochs <= 0 {
		return errors.New("Training.Epochs must be > 0")
	}
	if c.Training.LR <= 0 {
		return errors.New("Training.LR must be > 0")
	}
	if strings.TrimSpace(c.Data.Path) == "" {
		return errors.New("Data.Path must be set")
	}
	switch c.Model.Name {
	case "mlp", "convnet":
	default:
		return fmt.Errorf("unsupported model.name: %s", c.Model.Name)
	}
	switch c.Data.Kind {
	case "mnist", "cifar10":
	default:
		return fmt.Errorf("unsupported data.kind: %s", c.Data.Kind)
	}
	switch c.Training.Optimizer {
	case "sgd", "momentum":
	default:
		return fmt.Errorf("unsupported training.optimizer: %s", c.Training.Optimizer)
	}
	if c.Training.Seed == 0 && c.Data.Seed != 0 {
		c.Training.Seed = c.Data.Seed
	}
	return nil
}

// applyEnvOverrides lets a handful of environment variables override the
// loaded/default config, the same mechanism the teacher's config package
// uses: TENSORGRAD_CHECKPOINT, TENSORGRAD_LR, TENSORGRAD_EPOCHS,
// TENSORGRAD_BATCH, TENSORGRAD_DATA_PATH, TENSORGRAD_SEED,
// TENSORGRAD_OPTIMIZER.
func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("TENSORGRAD_CHECKPOINT"); v != "" {
		c.Checkpoint = v
	}
	if v := os.Getenv("TENSORGRAD_DATA_PATH"); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv("TENSORGRAD_LR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Training.LR = f
		}
	}
	if v := os.Getenv("TENSORGRAD_EPOCHS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Training.Epochs = i
		}
	}
	if v := os.Getenv("TENSORGRAD_BATCH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Data.BatchSize = i
		}
	}
	if v := os.Getenv("TENSORGRAD_SEED"); v != "" {
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Training.Seed = s
			c.Data.Seed = s
		}
	}
	if v := os.Getenv("TENSORGRAD_OPTIMIZER"); v != "" {
		c.Training.Optimizer = v
	}
}
