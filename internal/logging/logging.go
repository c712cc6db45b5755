// Package logging builds the process-wide slog logger from configuration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownFormat is returned for a format other than json or text.
var ErrUnknownFormat = errors.New("unknown log format")

// Config selects level and output format.
type Config struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=json text"`
}

// ParseLevel maps a level name to slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New returns a logger writing to w. A nil w writes to stderr.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return slog.New(h).With("service", "questionnaire"), nil
}

// Setup builds the logger from cfg and installs it as slog's default, so
// packages using slog.Default pick it up.
func Setup(cfg Config, w io.Writer) (*slog.Logger, error) {
	logger, err := New(cfg.Level, cfg.Format, w)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
