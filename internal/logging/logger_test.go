package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("/tmp/tada")

	assert.True(t, config.Enabled)
	assert.Equal(t, "/tmp/tada/tada.log", config.FilePath)
	assert.Equal(t, 10, config.MaxSize)
	assert.Equal(t, 3, config.MaxBackups)
	assert.Equal(t, 28, config.MaxAge)
	assert.True(t, config.Compress)
	assert.Equal(t, "info", config.Level)
	assert.False(t, config.JSONFormat)
}

func TestNew(t *testing.T) {
	t.Run("initializes with text format", func(t *testing.T) {
		logger := New(Config{Level: "info"}, nil)

		assert.NotNil(t, logger)
		assert.Equal(t, logrus.InfoLevel, logger.Level)
		assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	})

	t.Run("initializes with JSON format", func(t *testing.T) {
		logger := New(Config{Level: "debug", JSONFormat: true}, nil)

		assert.Equal(t, logrus.DebugLevel, logger.Level)
		assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	})

	t.Run("falls back to info on invalid level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: "loud"}, &buf)

		assert.Equal(t, logrus.InfoLevel, logger.Level)
		assert.Contains(t, buf.String(), "Invalid log level 'loud'")
	})

	t.Run("writes to console writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: "info"}, &buf)

		logger.WithField("op", "add").Info("hello")

		assert.Contains(t, buf.String(), "hello")
		assert.Contains(t, buf.String(), "op=add")
	})

	t.Run("writes to rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "tada.log")
		logger := New(Config{Enabled: true, FilePath: path, MaxSize: 1, Level: "info"}, nil)

		logger.Info("to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})
}

func TestNop(t *testing.T) {
	logger := Nop()
	assert.NotPanics(t, func() { logger.Error("dropped") })
}
