package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"CLASSIFY_CONFIG", "MODEL_PATH", "LABELS_PATH", "ORT_LIBRARY_PATH", "PORT",
	"LOG_LEVEL", "LOG_FORMAT", "FETCH_TIMEOUT_MS", "FETCH_MAX_BYTES", "IMAGE_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	exe, err := os.Executable()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.ModelPath))
	assert.Equal(t, "model.onnx", filepath.Base(cfg.ModelPath))
	assert.Equal(t, "labels.json", filepath.Base(cfg.LabelsPath))
	assert.NotEqual(t, "labels.json", cfg.LabelsPath)
	assert.Equal(t, filepath.Base(filepath.Dir(exe)), filepath.Base(filepath.Dir(cfg.LabelsPath)))
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 224, cfg.ImageSize)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.LibraryPath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "classify.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
model_path: /models/resnet.onnx
labels_path: /models/imagenet.json
fetch_timeout_ms: 2500
port: "9000"
log_format: json
`), 0o644))

	t.Setenv("CLASSIFY_CONFIG", file)
	t.Setenv("PORT", "9100")
	t.Setenv("FETCH_MAX_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/models/resnet.onnx", cfg.ModelPath)
	assert.Equal(t, "/models/imagenet.json", cfg.LabelsPath)
	assert.Equal(t, 2500*time.Millisecond, cfg.FetchTimeout)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, int64(1024), cfg.MaxBytes)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"timeout":  {"FETCH_TIMEOUT_MS", "soon"},
		"negative": {"FETCH_TIMEOUT_MS", "-5"},
		"bytes":    {"FETCH_MAX_BYTES", "lots"},
		"size":     {"IMAGE_SIZE", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLASSIFY_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "/opt/app/model.onnx", Resolve("/opt/app", "model.onnx"))
	assert.Equal(t, "/data/model.onnx", Resolve("/opt/app", "/data/model.onnx"))
	assert.Equal(t, "/opt/models/model.onnx", Resolve("/opt/app", "../models/model.onnx"))
}

func TestOverridePaths(t *testing.T) {
	cfg := Default()
	cfg.ModelPath = "/opt/app/model.onnx"
	cfg.OverridePaths("/home/me", "", "data/labels.json", "/usr/lib/libonnxruntime.so")

	assert.Equal(t, "/opt/app/model.onnx", cfg.ModelPath)
	assert.Equal(t, "/home/me/data/labels.json", cfg.LabelsPath)
	assert.Equal(t, "/usr/lib/libonnxruntime.so", cfg.LibraryPath)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.LogLevel = "loud"
	_, err = cfg.NewLogger()
	assert.Error(t, err)

	cfg.LogLevel = "info"
	cfg.LogFormat = "xml"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}
