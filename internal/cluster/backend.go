package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Backend is one scheduler-specific implementation of the job query
// contract.
type Backend interface {
	// Name is the short variant name, e.g. "pbs".
	Name() string

	// Detect reports whether the scheduler's query command is on PATH.
	Detect() bool

	// Query returns the current job snapshot in scheduler order. A non-empty
	// owner restricts the result to that user's jobs.
	Query(ctx context.Context, owner string) ([]Job, error)

	// JobStatus re-queries and returns the status of job id, or a
	// NoSuchJobError when it is no longer listed.
	JobStatus(ctx context.Context, owner, id string) (Status, error)
}

// Runner executes a command and returns its standard output. A failed
// command should return an *exec.ExitError carrying stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to a Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// ExecRunner runs commands as subprocesses. No timeout is imposed beyond
// ctx.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type options struct {
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// Option configures a Backend.
type Option func(*options)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithLookPath replaces the PATH lookup used by Detect.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *options) { o.lookPath = fn }
}

// WithLogger sets the logger used for dropped-record warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		runner:   ExecRunner{},
		lookPath: exec.LookPath,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// command holds what every variant shares: the query executable and how to
// run it.
type command struct {
	backend string
	name    string
	options
}

func (c command) detect() bool {
	_, err := c.lookPath(c.name)
	return err == nil
}

func (c command) run(ctx context.Context, args ...string) ([]byte, error) {
	c.logger.Debug("running scheduler query", "backend", c.backend, "cmd", c.name, "args", args)

	out, err := c.runner.Run(ctx, c.name, args...)
	if err != nil {
		qe := &QueryError{Backend: c.backend, Op: c.name + " " + strings.Join(args, " "), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			qe.Stderr = string(exitErr.Stderr)
		}
		return nil, qe
	}
	return out, nil
}

func (c command) parseError(err error) error {
	return &QueryError{Backend: c.backend, Op: "parse " + c.name + " output", Err: err}
}

func (c command) dropRecord(id string, err error) {
	c.logger.Warn("skipping malformed job record", "backend", c.backend, "id", id, "error", err)
}

func jobStatus(ctx context.Context, b Backend, owner, id string) (Status, error) {
	jobs, err := b.Query(ctx, owner)
	if err != nil {
		return StatusOther, err
	}
	j, err := Lookup(jobs, id)
	if err != nil {
		return StatusOther, err
	}
	return j.Status, nil
}

// Variant is a named backend constructor.
type Variant struct {
	Name string
	New  func(opts ...Option) Backend
}

// Variants is the closed set of backends in detection priority order.
var Variants = []Variant{
	{Name: "pbs", New: func(opts ...Option) Backend { return NewPBS(opts...) }},
	{Name: "slurm", New: func(opts ...Option) Backend { return NewSlurm(opts...) }},
}

// Select returns the first variant whose scheduler is detected on this host.
// Detection runs on every call.
func Select(opts ...Option) (Backend, error) {
	for _, v := range Variants {
		if b := v.New(opts...); b.Detect() {
			return b, nil
		}
	}
	return nil, ErrNoBackendFound
}

// SelectNamed returns the named variant without detection, for hosts where
// the caller forces a scheduler.
func SelectNamed(name string, opts ...Option) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range Variants {
		if v.Name == name {
			return v.New(opts...), nil
		}
	}
	return nil, fmt.Errorf("unknown backend %q: %w", name, ErrNoBackendFound)
}

// Detected returns the names of all variants present on this host.
func Detected(opts ...Option) []string {
	var names []string
	for _, v := range Variants {
		if v.New(opts...).Detect() {
			names = append(names, v.Name)
		}
	}
	return names
}
