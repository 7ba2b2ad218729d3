package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/classify-api/internal/imageio"
	"github.com/Brownie44l1/classify-api/internal/model"
)

// Config holds everything the classifier reads at startup.
type Config struct {
	ModelPath    string        `yaml:"model_path"`
	LabelsPath   string        `yaml:"labels_path"`
	LibraryPath  string        `yaml:"ort_library_path"`
	FetchTimeout time.Duration `yaml:"-"`
	TimeoutMS    int           `yaml:"fetch_timeout_ms"`
	MaxBytes     int64         `yaml:"fetch_max_bytes"`
	ImageSize    int           `yaml:"image_size"`
	Port         string        `yaml:"port"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ModelPath:    "model.onnx",
		LabelsPath:   "labels.json",
		FetchTimeout: imageio.DefaultTimeout,
		TimeoutMS:    int(imageio.DefaultTimeout / time.Millisecond),
		MaxBytes:     imageio.DefaultMaxBytes,
		ImageSize:    model.ImageSize,
		Port:         "8080",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load applies, in order: defaults, the YAML file named by CLASSIFY_CONFIG,
// and environment variables (a .env file is honoured when present).
func Load() (*Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CLASSIFY_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.FetchTimeout = time.Duration(cfg.TimeoutMS) * time.Millisecond

	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	cfg.ModelPath = Resolve(base, cfg.ModelPath)
	cfg.LabelsPath = Resolve(base, cfg.LabelsPath)
	if cfg.LibraryPath != "" {
		cfg.LibraryPath = Resolve(base, cfg.LibraryPath)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.ModelPath, "MODEL_PATH")
	setString(&c.LabelsPath, "LABELS_PATH")
	setString(&c.LibraryPath, "ORT_LIBRARY_PATH")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if v := os.Getenv("FETCH_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT_MS %q: %w", v, err)
		}
		c.TimeoutMS = ms
	}
	if v := os.Getenv("FETCH_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid FETCH_MAX_BYTES %q: %w", v, err)
		}
		c.MaxBytes = n
	}
	if v := os.Getenv("IMAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid IMAGE_SIZE %q: %w", v, err)
		}
		c.ImageSize = n
	}
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.ModelPath == "":
		return fmt.Errorf("model path is required")
	case c.LabelsPath == "":
		return fmt.Errorf("labels path is required")
	case c.TimeoutMS <= 0:
		return fmt.Errorf("fetch timeout must be positive, got %dms", c.TimeoutMS)
	case c.MaxBytes <= 0:
		return fmt.Errorf("fetch max bytes must be positive, got %d", c.MaxBytes)
	case c.ImageSize <= 0:
		return fmt.Errorf("image size must be positive, got %d", c.ImageSize)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// baseDir is the directory holding the running executable, so relative
// model and label paths do not depend on the caller's working directory.
func baseDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// OverridePaths replaces the model, labels and library paths with any
// non-empty argument, resolving relative ones against base.
func (c *Config) OverridePaths(base, modelPath, labelsPath, libraryPath string) {
	if modelPath != "" {
		c.ModelPath = Resolve(base, modelPath)
	}
	if labelsPath != "" {
		c.LabelsPath = Resolve(base, labelsPath)
	}
	if libraryPath != "" {
		c.LibraryPath = Resolve(base, libraryPath)
	}
}

// Resolve joins relative paths onto base and leaves absolute ones alone.
func Resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
