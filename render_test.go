package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mq/internal/cluster"
	"mq/internal/engine"
)

func runningPane(id string, height int, lines ...string) engine.Pane {
	j := cluster.Job{ID: id, Name: "train", Status: cluster.StatusRunning, Host: "n01", StdoutPath: "/tmp/" + id + ".out"}
	return engine.Pane{Job: j, Title: id + " train [running] @ n01", Height: height, Lines: lines}
}

func TestRenderFramePanes(t *testing.T) {
	f := engine.Frame{
		Time:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Width:     100,
		Height:    6,
		Panes:     []engine.Pane{runningPane("1", 3, "a1", "a2"), runningPane("2", 3, "b1", "b2", "b3")},
		Queued:    []cluster.Job{{ID: "3", Status: cluster.StatusPending}},
		KeepGoing: true,
	}

	out := renderFrame(f, renderOptions{})
	assert.Contains(t, out, "2 running · 1 queued · 0 finished")
	assert.Contains(t, out, "1 train [running] @ n01")
	assert.Contains(t, out, "a2")
	assert.Contains(t, out, "b2")
	// Panes of height 3 hold a title and two lines.
	assert.NotContains(t, out, "b3")
	assert.Contains(t, out, "queued: 3")

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 100)
	}
}

func TestRenderFramePadsToHeight(t *testing.T) {
	f := engine.Frame{
		Width:     40,
		Height:    10,
		Panes:     []engine.Pane{runningPane("1", 5, "only")},
		Finished:  []cluster.Job{{ID: "9"}},
		KeepGoing: true,
	}

	out := renderFrame(f, renderOptions{pad: true, warning: "level=WARN msg=slow"})
	lines := strings.Split(out, "\n")
	// Header, body, footer and warning.
	assert.Len(t, lines, 1+10+2)
	assert.Contains(t, lines[len(lines)-2], "done: 9")
	assert.Contains(t, lines[len(lines)-1], "msg=slow")
}

func TestRenderFrameQueryError(t *testing.T) {
	f := engine.Frame{Width: 80, Height: 10, Err: errors.New("qstat: connection refused"), KeepGoing: true}

	out := renderFrame(f, renderOptions{})
	assert.Contains(t, out, "scheduler query failed: qstat: connection refused")
	assert.Contains(t, out, "retrying in the next cycle")
}

func TestEmptyFrameMessage(t *testing.T) {
	assert.Equal(t, "All watched jobs have finished", emptyFrameMessage(engine.Frame{}))
	assert.Equal(t, "Waiting for queued jobs to start",
		emptyFrameMessage(engine.Frame{KeepGoing: true, Queued: []cluster.Job{{ID: "1"}}}))
	assert.Equal(t, "No running jobs", emptyFrameMessage(engine.Frame{KeepGoing: true}))
}

func TestRenderPaneWithoutOutputPath(t *testing.T) {
	p := runningPane("4", 3)
	p.Job.StdoutPath = ""

	lines := renderPane(p, 50, false)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "no output path reported")

	assert.Nil(t, renderPane(engine.Pane{Height: 0}, 50, false))
}

func TestClipLine(t *testing.T) {
	assert.Equal(t, "abc", clipLine("abc", 10))
	assert.Equal(t, "abcd…", clipLine("abcdefgh", 5))
	assert.Equal(t, "", clipLine("abc", 0))
}

func TestRenderStatusTable(t *testing.T) {
	jobs := []cluster.Job{
		{ID: "101", Name: "a-very-long-job-name", Status: cluster.StatusRunning, Queue: "gpu", Host: "n07", NodeCount: 2},
		{ID: "102", Name: "wait", Status: cluster.StatusPending, Queue: "cpu"},
	}

	out := renderStatusTable(jobs)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)

	assert.Contains(t, lines[0], "id")
	assert.Contains(t, lines[0], "host")
	assert.Contains(t, lines[2], "a-very-lo…")
	assert.Contains(t, lines[2], "R")
	assert.Contains(t, lines[2], "n07")
	assert.Contains(t, lines[3], "PD")
	assert.Contains(t, lines[3], "-")
}

func TestRenderStatusTableCapsWideColumns(t *testing.T) {
	jobs := []cluster.Job{{
		ID:     "1",
		Name:   "x",
		Status: cluster.StatusRunning,
		Queue:  strings.Repeat("q", 40),
		Host:   strings.Repeat("h", 40),
	}}

	out := renderStatusTable(jobs)
	row := strings.Split(out, "\n")[2]
	assert.Contains(t, row, strings.Repeat("q", queueColumnWidth-1)+"…")
	assert.NotContains(t, row, strings.Repeat("q", queueColumnWidth))
	assert.Contains(t, row, strings.Repeat("h", hostColumnWidth-1)+"…")
	assert.NotContains(t, row, strings.Repeat("h", hostColumnWidth))
}

func TestPrintSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &printSink{out: &buf, width: 70, height: 20}

	width, height := sink.Size()
	assert.Equal(t, 70, width)
	assert.Equal(t, 18, height)

	require.NoError(t, sink.Render(engine.Frame{Width: 70, Height: 18}))
	assert.Contains(t, buf.String(), "All watched jobs have finished")
}
