package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds configuration for logging
type Config struct {
	Enabled    bool   `yaml:"enabled"`                                                        // Enable/disable file logging
	FilePath   string `yaml:"file_path"`                                                      // Path to log file
	MaxSize    int    `yaml:"max_size_mb" validate:"gte=0"`                                   // Maximum size in megabytes before rotation
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`                                   // Maximum number of old log files to retain
	MaxAge     int    `yaml:"max_age_days" validate:"gte=0"`                                  // Maximum number of days to retain old log files
	Compress   bool   `yaml:"compress"`                                                       // Compress rotated log files
	Level      string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"` // Log level
	JSONFormat bool   `yaml:"json_format"`                                                    // Use JSON format instead of text
}

// DefaultConfig logs to dir/tada.log at info level.
func DefaultConfig(dir string) Config {
	return Config{
		Enabled:    true,
		FilePath:   filepath.Join(dir, "tada.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Level:      "info",
	}
}

// New builds a logger from config. File output goes through lumberjack for
// rotation. console may be nil: the TUI owns the terminal, so interactive
// runs only log to the file.
func New(config Config, console io.Writer) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
		})
	}

	var writers []io.Writer
	if config.Enabled && config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o700); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   config.FilePath,
				MaxSize:    config.MaxSize,
				MaxBackups: config.MaxBackups,
				MaxAge:     config.MaxAge,
				Compress:   config.Compress,
			})
		}
	}
	if console != nil {
		writers = append(writers, console)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	if err != nil && config.Level != "" {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Level)
	}
	return logger
}

// Nop returns a logger that drops everything.
func Nop() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
