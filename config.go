package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"mq/internal/engine"
)

const (
	envInterval = "MQ_INTERVAL"
	envLines    = "MQ_LINES"
	envBackend  = "MQ_BACKEND"
	envLogLevel = "MQ_LOG_LEVEL"
	envLogFile  = "MQ_LOG_FILE"

	defaultLines    = 20
	defaultLogLevel = "warn"
)

type config struct {
	interval time.Duration
	lines    int
	backend  string
	logLevel string
	logFile  string
	allUsers bool
}

// configFromEnv builds the defaults that flags may override. Unparsable
// values fall back to the built-in defaults.
func configFromEnv() config {
	return config{
		interval: durationFromEnv(envInterval, engine.DefaultInterval),
		lines:    intFromEnv(envLines, defaultLines),
		backend:  strings.TrimSpace(os.Getenv(envBackend)),
		logLevel: stringFromEnv(envLogLevel, defaultLogLevel),
		logFile:  strings.TrimSpace(os.Getenv(envLogFile)),
	}
}

func (c *config) bindPersistentFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.backend, "backend", c.backend, "Force a scheduler backend (pbs, slurm) instead of detecting one")
	fs.BoolVarP(&c.allUsers, "all-users", "a", c.allUsers, "Show jobs of all users, not only yours")
	fs.StringVar(&c.logLevel, "log-level", c.logLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.logFile, "log-file", c.logFile, "Also write logs to this file")
}

func (c *config) bindTailFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.lines, "lines", "n", c.lines, "Number of lines to display per job")
	fs.DurationVar(&c.interval, "interval", c.interval, "Time between refreshes")
}

func stringFromEnv(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func intFromEnv(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func durationFromEnv(name string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}

	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	// Bare numbers are seconds.
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}
