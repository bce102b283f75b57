package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"

	"mq/internal/cluster"
	"mq/internal/engine"
)

const (
	// frameChrome is the header and footer line around the panes.
	frameChrome = 2

	nameColumnWidth  = 10
	queueColumnWidth = 20
	hostColumnWidth  = 16
)

type renderOptions struct {
	width int

	// pad fills unused pane rows so the frame keeps a fixed height.
	pad     bool
	warning string
}

func renderFrame(f engine.Frame, opts renderOptions) string {
	width := opts.width
	if width <= 0 {
		width = f.Width
	}

	lines := []string{renderFrameHeader(f, width)}

	var body []string
	switch {
	case f.Err != nil:
		body = append(body, errorStyle.Render(clipLine("scheduler query failed: "+f.Err.Error(), width)))
		body = append(body, placeholderStyle.Render(clipLine("retrying in the next cycle", width)))
	case len(f.Panes) == 0:
		body = append(body, placeholderStyle.Render(clipLine(emptyFrameMessage(f), width)))
	default:
		for _, p := range f.Panes {
			body = append(body, renderPane(p, width, opts.pad)...)
		}
	}
	if opts.pad {
		for len(body) < f.Height {
			body = append(body, "")
		}
	}
	lines = append(lines, body...)

	if footer := renderFrameFooter(f, width, opts.warning); footer != "" {
		lines = append(lines, footer)
	}
	return strings.Join(lines, "\n")
}

func emptyFrameMessage(f engine.Frame) string {
	switch {
	case !f.KeepGoing:
		return "All watched jobs have finished"
	case len(f.Queued) > 0:
		return "Waiting for queued jobs to start"
	default:
		return "No running jobs"
	}
}

func renderFrameHeader(f engine.Frame, width int) string {
	meta := fmt.Sprintf("%s · %d running · %d queued · %d finished",
		f.Time.Format(time.ANSIC), len(f.Panes), len(f.Queued), len(f.Finished))
	return headerStyle.Render("mq") + " " + headerMetaStyle.Render(clipLine(meta, width-3))
}

func renderFrameFooter(f engine.Frame, width int, warning string) string {
	var parts []string
	if len(f.Queued) > 0 {
		parts = append(parts, "queued: "+joinIDs(f.Queued))
	}
	if len(f.Finished) > 0 {
		parts = append(parts, "done: "+joinIDs(f.Finished))
	}

	footer := footerStyle.Render(clipLine(strings.Join(parts, "  "), width))
	if warning != "" {
		footer = lipgloss.JoinVertical(lipgloss.Left, footer, warningStyle.Render(clipLine(warning, width)))
	}
	if strings.TrimSpace(footer) == "" {
		return ""
	}
	return footer
}

func renderPane(p engine.Pane, width int, pad bool) []string {
	if p.Height <= 0 {
		return nil
	}

	title := paneTitleStyle.
		Background(statusColor(p.Job.Status)).
		MaxWidth(width).
		Render(p.Title)
	lines := []string{title}

	room := p.Height - 1
	if p.Job.StdoutPath == "" && room > 0 {
		lines = append(lines, placeholderStyle.Render(clipLine("no output path reported", width)))
		room--
	}
	for i := 0; i < len(p.Lines) && i < room; i++ {
		lines = append(lines, paneBodyStyle.Render(p.Lines[i]))
	}
	if pad {
		for len(lines) < p.Height {
			lines = append(lines, "")
		}
	}
	return lines
}

func joinIDs(jobs []cluster.Job) string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return strings.Join(ids, " ")
}

func clipLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func renderStatusTable(jobs []cluster.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		nodes := "-"
		if j.NodeCount > 0 {
			nodes = strconv.Itoa(j.NodeCount)
		}
		host := j.Host
		if host == "" {
			host = "-"
		}
		rows = append(rows, []string{
			j.ID,
			runewidth.Truncate(j.Name, nameColumnWidth, "…"),
			j.Status.Short(),
			nodes,
			runewidth.Truncate(j.Queue, queueColumnWidth, "…"),
			runewidth.Truncate(host, hostColumnWidth, "…"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		Headers("id", "name", "st", "N", "queue", "host").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 2 && row >= 0 && row < len(jobs) {
				return tableCellStyle.Foreground(statusColor(jobs[row].Status)).Bold(true)
			}
			return tableCellStyle
		})
	return t.Render()
}

// printSink writes every frame to out, one after the other. Used for
// single-shot output and when stdout is not a terminal.
type printSink struct {
	out    io.Writer
	width  int
	height int
}

func newPrintSink(out io.Writer) *printSink {
	width, height := detectTerminalSize()
	return &printSink{out: out, width: width, height: height}
}

func (s *printSink) Size() (int, int) {
	return s.width, max(s.height-frameChrome, 1)
}

func (s *printSink) Render(f engine.Frame) error {
	_, err := fmt.Fprintln(s.out, renderFrame(f, renderOptions{width: s.width}))
	return err
}

func isTerminal() bool {
	return term.IsTerminal(os.Stdout.Fd())
}

func detectTerminalSize() (int, int) {
	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}
