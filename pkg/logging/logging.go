package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Settings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

func DefaultSettings() Settings {
	return Settings{Level: "info", Format: "console"}
}

// Init configures the global zerolog logger. When discardWithoutFile is set
// and no file is configured, logs are dropped; the terminal UI owns stdout
// and stderr.
func Init(s Settings, discardWithoutFile bool) (io.Closer, error) {
	level := zerolog.InfoLevel
	if s.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	switch {
	case s.File != "":
		path, err := homedir.Expand(s.File)
		if err != nil {
			return nil, errors.Wrapf(err, "could not expand log file path %s", s.File)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "could not open log file %s", s.File)
		}
		out, closer = f, f
	case discardWithoutFile:
		out = io.Discard
	}

	switch strings.ToLower(s.Format) {
	case "", "console", "text":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: s.File != ""}
	case "json":
	default:
		_ = closer.Close()
		return nil, errors.Errorf("unknown log format %q", s.Format)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
