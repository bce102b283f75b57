// Package tailfile reads the last lines of job output files that may still
// be growing. Each call opens the file afresh; nothing is held between calls.
package tailfile

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// ReadLines returns up to maxLines final lines of the file at path, oldest
// first. A missing file yields no lines and no error, since jobs that have
// not started writing are not a failure. Invalid UTF-8 is replaced rather
// than rejected.
func ReadLines(path string, maxLines int) ([]string, error) {
	if path == "" || maxLines <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, maxLines)
	n := 0
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			ring[n%maxLines] = clean(line)
			n++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if n <= maxLines {
		return ring[:n], nil
	}
	start := n % maxLines
	return append(ring[start:], ring[:start]...), nil
}

// ReadTail is ReadLines joined with newlines.
func ReadTail(path string, maxLines int) (string, error) {
	lines, err := ReadLines(path, maxLines)
	if err != nil || len(lines) == 0 {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// clean drops the line terminator, keeps only what follows the last carriage
// return (progress bars redraw with \r) and sanitizes the rest.
func clean(line string) string {
	line = strings.TrimRight(line, "\r\n")
	if i := strings.LastIndexByte(line, '\r'); i != -1 {
		line = line[i+1:]
	}
	return Sanitize(line)
}

// TabWidth is the tab stop used when expanding tabs.
const TabWidth = 4

// Sanitize makes one line of untrusted output safe to draw in a fixed-width
// cell: invalid UTF-8 is replaced, ANSI escape sequences are removed, tabs
// are expanded to spaces and any remaining control characters are dropped.
// The display width of the result equals its measured width.
func Sanitize(line string) string {
	line = ansi.Strip(strings.ToValidUTF8(line, "\uFFFD"))

	var b strings.Builder
	col := 0
	for _, r := range line {
		switch {
		case r == '\t':
			n := TabWidth - col%TabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
			col += runewidth.RuneWidth(r)
		}
	}
	return b.String()
}
