package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mq/internal/cluster"
	"mq/internal/tailfile"
)

// DefaultInterval is the pause between two polls.
const DefaultInterval = 5 * time.Second

// Renderer draws frames. Size reports the cells available for panes, not
// counting whatever header or footer the renderer adds itself.
type Renderer interface {
	Size() (width, height int)
	Render(Frame) error
}

// TailReader returns the last maxLines lines of a file.
type TailReader func(path string, maxLines int) ([]string, error)

// Pane is the laid-out view of one running job.
type Pane struct {
	Job    cluster.Job
	Title  string
	Height int
	Lines  []string

	// Err is set when the output could not be read; Lines is then empty.
	Err error
}

// Frame is one complete, consistent snapshot of a cycle.
type Frame struct {
	Time   time.Time
	Width  int
	Height int
	Cycle  int

	Panes    []Pane
	Queued   []cluster.Job
	Finished []cluster.Job

	// Err is a failed scheduler query. It replaces the panes for this cycle
	// and the loop carries on.
	Err error

	KeepGoing bool
	Final     bool
}

// Config controls one engine run.
type Config struct {
	// Owner scopes scheduler queries; empty means all users.
	Owner string

	Interval time.Duration

	// Lines caps the tail length of a pane. Zero lets the pane height decide.
	Lines int

	// Watch keeps polling. When false exactly one frame is produced.
	Watch bool
}

// Engine drives the poll/render/sleep loop for a fixed set of jobs.
type Engine struct {
	backend cluster.Backend
	sink    Renderer
	cfg     Config

	readTail TailReader
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
	logger   *slog.Logger
	onState  func(State)

	state State
	cycle int
	known map[string]cluster.Job
}

// Option configures an Engine.
type Option func(*Engine)

func WithTailReader(r TailReader) Option {
	return func(e *Engine) { e.readTail = r }
}

func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(e *Engine) { e.sleep = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStateHook is called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(e *Engine) { e.onState = fn }
}

func New(backend cluster.Backend, sink Renderer, cfg Config, opts ...Option) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	e := &Engine{
		backend:  backend,
		sink:     sink,
		cfg:      cfg,
		readTail: tailfile.ReadLines,
		sleep:    sleepContext,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		known:    make(map[string]cluster.Job),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current loop state.
func (e *Engine) State() State {
	return e.state
}

// Run polls and renders watched until none of them is active, or after one
// frame when the engine is not watching. Only the ids of watched are used
// for polling; the values themselves seed titles until the first poll.
// Returns ctx.Err() when cancelled.
func (e *Engine) Run(ctx context.Context, watched []cluster.Job) error {
	ids := make([]string, 0, len(watched))
	for _, j := range watched {
		if _, dup := e.known[j.ID]; dup {
			continue
		}
		e.known[j.ID] = j
		ids = append(ids, j.ID)
	}

	defer e.setState(StateDone)

	for {
		e.setState(StatePolling)
		frame := e.poll(ctx, ids)
		if err := ctx.Err(); err != nil {
			return err
		}

		frame.Final = !e.cfg.Watch || !frame.KeepGoing

		e.setState(StateRendering)
		if err := e.sink.Render(frame); err != nil {
			return fmt.Errorf("render frame: %w", err)
		}
		if frame.Final {
			return nil
		}

		e.setState(StateSleeping)
		if err := e.sleep(ctx, e.cfg.Interval); err != nil {
			return err
		}
	}
}

func (e *Engine) poll(ctx context.Context, ids []string) Frame {
	e.cycle++
	width, height := e.sink.Size()
	frame := Frame{
		Time:   e.now(),
		Width:  width,
		Height: height,
		Cycle:  e.cycle,
	}

	jobs, err := e.backend.Query(ctx, e.cfg.Owner)
	if err != nil {
		e.logger.Warn("scheduler query failed", "backend", e.backend.Name(), "cycle", e.cycle, "error", err)
		frame.Err = err
		frame.KeepGoing = true
		return frame
	}

	var running []cluster.Job
	for _, id := range ids {
		j, err := cluster.Lookup(jobs, id)
		if errors.Is(err, cluster.ErrNoSuchJob) {
			// Left the queue; its final state is unknown.
			j = e.known[id]
			j.ID = id
			j.Status = cluster.StatusOther
		}
		e.known[id] = j

		if j.Status.Active() {
			frame.KeepGoing = true
		}
		switch {
		case j.Status.HasOutput():
			running = append(running, j)
		case j.Status == cluster.StatusPending:
			frame.Queued = append(frame.Queued, j)
		default:
			frame.Finished = append(frame.Finished, j)
		}
	}

	frame.Panes = e.layout(running, width, height)
	return frame
}

func (e *Engine) layout(running []cluster.Job, width, height int) []Pane {
	if len(running) == 0 {
		return nil
	}

	heights := PaneHeights(height, len(running))
	panes := make([]Pane, len(running))
	for i, j := range running {
		p := Pane{
			Job:    j,
			Title:  clip(paneTitle(j), width),
			Height: heights[i],
		}

		maxLines := heights[i] - 1
		if e.cfg.Lines > 0 && e.cfg.Lines < maxLines {
			maxLines = e.cfg.Lines
		}

		if maxLines > 0 && j.StdoutPath != "" {
			lines, err := e.readTail(j.StdoutPath, maxLines)
			if err != nil {
				e.logger.Debug("reading job output failed", "job", j.ID, "path", j.StdoutPath, "error", err)
				p.Err = err
			} else {
				p.Lines = make([]string, len(lines))
				for k, line := range lines {
					p.Lines[k] = clip(tailfile.Sanitize(line), width)
				}
			}
		}
		panes[i] = p
	}
	return panes
}

func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	e.logger.Debug("engine state", "from", e.state, "to", s)
	e.state = s
	if e.onState != nil {
		e.onState(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
