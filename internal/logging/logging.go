// Package logging builds the process logger. The dashboard owns the
// terminal, so logs go to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/nailedit/internal/model"
)

// DebugEnv forces debug logging when set to a true value.
const DebugEnv = "NAILEDIT_DEBUG"

// Setup returns a logger configured from cfg and the closer for its file.
// An empty cfg.File discards output.
func Setup(cfg model.LogConfig) (*log.Logger, io.Closer, error) {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	if dbg, err := strconv.ParseBool(os.Getenv(DebugEnv)); err == nil && dbg {
		level = log.DebugLevel
	}
	logger.SetLevel(level)

	if cfg.File == "" {
		logger.SetOutput(io.Discard)
		return logger, io.NopCloser(nil), nil
	}

	path := cfg.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(model.ConfigDir(), path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f, nil
}

// Console returns a logger writing to stderr, for one-shot commands.
func Console(level string) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	if dbg, err := strconv.ParseBool(os.Getenv(DebugEnv)); err == nil && dbg {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
