package engine

import (
	"fmt"

	"github.com/muesli/reflow/truncate"

	"mq/internal/cluster"
)

const ellipsis = "…"

// PaneHeights splits height evenly between count panes. A count below one is
// treated as one so an empty active set still gets a single placeholder
// pane. The sum never exceeds height; any remainder is left unused.
func PaneHeights(height, count int) []int {
	if count < 1 {
		count = 1
	}
	if height < 0 {
		height = 0
	}
	each := height / count
	heights := make([]int, count)
	for i := range heights {
		heights[i] = each
	}
	return heights
}

// clip cuts s to width cells, marking the cut with an ellipsis. Lines are
// never wrapped so columns stay aligned while output scrolls.
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return truncate.StringWithTail(s, uint(width), ellipsis)
}

func paneTitle(j cluster.Job) string {
	host := j.Host
	if host == "" {
		host = "-"
	}
	title := fmt.Sprintf("%s %s [%s] @ %s", j.ID, j.Name, j.Status, host)
	if j.Name == "" {
		title = fmt.Sprintf("%s [%s] @ %s", j.ID, j.Status, host)
	}
	return title
}
