package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// newLogger builds a logrus.Logger configured from cfg. An unrecognized
// level string is an error, not a silent fallback, so a typo in
// configuration surfaces at startup rather than quietly running at the
// wrong verbosity.
func newLogger(cfg *Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}

	log := logrus.New()
	log.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log_format %q: must be \"text\" or \"json\"", cfg.LogFormat)
	}

	return log, nil
}
