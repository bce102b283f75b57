package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mq/internal/cluster"
	"mq/internal/engine"
)

const version = "0.3.0"

type cli struct {
	cfg config

	// user is the invoking login, read once at start.
	user string

	logger   *slog.Logger
	logFile  *os.File
	warnings *lastLine

	// backendOpts is extra configuration for every backend, used by tests
	// to stub out subprocesses.
	backendOpts []cluster.Option

	// live reports whether the tail view should take over the terminal.
	live func() bool
}

func newCLI() *cli {
	return &cli{
		cfg:      configFromEnv(),
		user:     cluster.CurrentUser(),
		warnings: &lastLine{},
		live:     isTerminal,
	}
}

func (c *cli) rootCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "mq",
		Short: "A nicer qstat/squeue for the current user",
		Long: "mq shows your PBS or Slurm jobs and tails their output.\n\n" +
			"Without a subcommand it prints a table of your active jobs.\n" +
			"JOB arguments accept \"last\", \"all\" or a job id.",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setupLogging(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.status(cmd.Context(), cmd.OutOrStdout())
		},
	}

	command.AddCommand(
		c.rawCmd(),
		c.catCmd(),
		c.tailCmd(),
		c.backendsCmd(),
	)

	command.CompletionOptions.HiddenDefaultCmd = true
	c.cfg.bindPersistentFlags(command.PersistentFlags())

	return command
}

// execute runs command and closes the log file afterwards, also when the
// command fails.
func (c *cli) execute(ctx context.Context, command *cobra.Command) error {
	err := command.ExecuteContext(ctx)
	if cerr := c.closeLog(); err == nil {
		err = cerr
	}
	return err
}

func (c *cli) closeLog() error {
	if c.logFile == nil {
		return nil
	}
	err := c.logFile.Close()
	c.logFile = nil
	return err
}

func (c *cli) rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw",
		Short: "Print your jobs as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, jobs, err := c.query(cmd.Context())
			if err != nil {
				return err
			}
			if jobs == nil {
				jobs = []cluster.Job{}
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(jobs)
		},
	}
}

func (c *cli) catCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "cat [JOB]",
		Short:   "Print a job's output",
		Example: "  mq cat\n  mq cat 34989208\n  mq cat all",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, jobs, err := c.selectJobs(cmd.Context(), selector(args))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, j := range jobs {
				if j.StdoutPath == "" {
					c.logger.Warn("job reports no output path", "job", j.ID)
					continue
				}
				if err := copyFile(out, j.StdoutPath); err != nil {
					if errors.Is(err, os.ErrNotExist) {
						c.logger.Warn("job output does not exist yet", "job", j.ID, "path", j.StdoutPath)
						continue
					}
					return fmt.Errorf("read output of job %s: %w", j.ID, err)
				}
			}
			return nil
		},
	}
}

func (c *cli) tailCmd() *cobra.Command {
	var (
		watch   = true
		noWatch bool
	)

	command := &cobra.Command{
		Use:     "tail [JOB]",
		Short:   "Display the last lines of a job's output",
		Example: "  mq tail\n  mq tail all -n 40\n  mq tail 34989208 --no-watch",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := engine.Config{
				Owner:    c.owner(),
				Interval: c.cfg.interval,
				Lines:    c.cfg.lines,
				Watch:    watch && !noWatch,
			}
			live := cfg.Watch && c.live()
			if live {
				c.useLiveLogging()
			}

			backend, watched, err := c.selectJobs(cmd.Context(), selector(args))
			if err != nil {
				return err
			}

			if live {
				return c.runLive(cmd.Context(), cmd.OutOrStdout(), backend, cfg, watched)
			}

			e := engine.New(backend, newPrintSink(cmd.OutOrStdout()), cfg, engine.WithLogger(c.logger))
			return ignoreCanceled(e.Run(cmd.Context(), watched))
		},
	}

	command.Flags().BoolVarP(&watch, "watch", "w", watch, "Keep refreshing until the jobs finish")
	command.Flags().BoolVar(&noWatch, "no-watch", false, "Print one snapshot and exit")
	c.cfg.bindTailFlags(command.Flags())

	return command
}

func (c *cli) backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List supported schedulers and whether they are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			detected := make(map[string]bool)
			for _, name := range cluster.Detected(c.backendOptions()...) {
				detected[name] = true
			}

			out := cmd.OutOrStdout()
			for _, v := range cluster.Variants {
				state := "not found"
				if detected[v.Name] {
					state = "available"
				}
				if _, err := fmt.Fprintf(out, "%-6s %s\n", v.Name, state); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (c *cli) status(ctx context.Context, out io.Writer) error {
	_, jobs, err := c.query(ctx)
	if err != nil {
		return err
	}

	var active []cluster.Job
	for _, j := range jobs {
		if j.IsActive() {
			active = append(active, j)
		}
	}
	_, err = fmt.Fprintln(out, renderStatusTable(active))
	return err
}

func (c *cli) runLive(ctx context.Context, out io.Writer, backend cluster.Backend, cfg engine.Config, watched []cluster.Job) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	size := &viewSize{}
	size.set(detectTerminalSize())

	p := tea.NewProgram(NewLiveModel(size, c.warnings, cancel), tea.WithAltScreen())
	sink := &liveSink{program: p, size: size}
	e := engine.New(backend, sink, cfg, engine.WithLogger(c.logger))

	done := make(chan error, 1)
	go func() {
		err := e.Run(ctx, watched)
		p.Send(engineDoneMsg{err: err})
		done <- err
	}()

	final, err := p.Run()
	cancel()
	runErr := <-done
	if err != nil {
		return fmt.Errorf("live view: %w", err)
	}

	// The alternate screen is gone; leave the last frame on the terminal.
	if m, ok := final.(LiveModel); ok && m.hasFrame {
		width, _ := size.get()
		if _, err := fmt.Fprintln(out, renderFrame(m.frame, renderOptions{width: width})); err != nil {
			return err
		}
	}
	return ignoreCanceled(runErr)
}

func (c *cli) setupLogging(stderr io.Writer) error {
	if c.cfg.logFile != "" {
		f, err := os.OpenFile(c.cfg.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		c.logFile = f
	}
	c.logger = newLogger(c.logWriter(stderr), c.cfg.logLevel)
	return nil
}

// useLiveLogging moves log output off the terminal, which the live view
// owns, and into the footer capture.
func (c *cli) useLiveLogging() {
	c.logger = newLogger(c.logWriter(c.warnings), c.cfg.logLevel)
}

func (c *cli) logWriter(w io.Writer) io.Writer {
	if c.logFile == nil {
		return w
	}
	return io.MultiWriter(w, c.logFile)
}

func (c *cli) backendOptions() []cluster.Option {
	opts := []cluster.Option{cluster.WithLogger(c.logger)}
	return append(opts, c.backendOpts...)
}

// backend detects the scheduler on every invocation unless one is forced.
func (c *cli) backend() (cluster.Backend, error) {
	if c.cfg.backend != "" {
		return cluster.SelectNamed(c.cfg.backend, c.backendOptions()...)
	}
	return cluster.Select(c.backendOptions()...)
}

func (c *cli) owner() string {
	if c.cfg.allUsers {
		return ""
	}
	return c.user
}

func (c *cli) query(ctx context.Context) (cluster.Backend, []cluster.Job, error) {
	backend, err := c.backend()
	if err != nil {
		return nil, nil, err
	}
	jobs, err := backend.Query(ctx, c.owner())
	if err != nil {
		return nil, nil, err
	}
	return backend, jobs, nil
}

func (c *cli) selectJobs(ctx context.Context, token string) (cluster.Backend, []cluster.Job, error) {
	backend, jobs, err := c.query(ctx)
	if err != nil {
		return nil, nil, err
	}
	selected, err := cluster.Resolve(jobs, token)
	if err != nil {
		return nil, nil, err
	}
	if len(selected) == 0 && token != cluster.SelectAll {
		return nil, nil, cluster.NoSuchJobError{ID: token}
	}
	return backend, selected, nil
}

func selector(args []string) string {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return cluster.SelectLast
	}
	return strings.TrimSpace(args[0])
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
