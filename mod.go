// Package jellybean is the root of the jellybean machine ledger. It holds the
// few globals shared by every package, like the logger and the list of
// prometheus collectors.
package jellybean

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.DebugLevel)

// PromCollectors exposes the Prometheus collectors created by the packages.
// A package appends its collectors in its init function and the collectors
// are registered by the process that exposes the metrics.
var PromCollectors []prometheus.Collector

// SetLogLevel parses the level and updates the global logger. An empty string
// keeps the current level.
func SetLogLevel(level string) error {
	if level == "" {
		return nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	Logger = Logger.Level(lvl)

	return nil
}
