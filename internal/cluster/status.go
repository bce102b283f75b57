package cluster

import "strings"

// Status is the scheduler-independent state of a job.
type Status int

const (
	// StatusOther is the fallback for any scheduler code without a mapping.
	StatusOther Status = iota
	StatusPending
	StatusRunning
	StatusCompleting
	StatusCompleted
	StatusFailed
)

// NOTE: keep in sync with the Status constants.
var statusNames = []string{
	"other",
	"pending",
	"running",
	"completing",
	"completed",
	"failed",
}

func (s Status) String() string {
	if int(s) < 0 || int(s) >= len(statusNames) {
		return statusNames[0]
	}
	return statusNames[s]
}

// Short returns a compact code for table columns.
func (s Status) Short() string {
	switch s {
	case StatusPending:
		return "PD"
	case StatusRunning:
		return "R"
	case StatusCompleting:
		return "CG"
	case StatusCompleted:
		return "CD"
	case StatusFailed:
		return "F"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON dumps carry names.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	*s = StatusOther
	return nil
}

// Active reports whether s keeps a job displayed and the live view running.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusRunning || s == StatusCompleting
}

// HasOutput reports whether a job in state s gets a tail pane.
func (s Status) HasOutput() bool {
	return s == StatusRunning || s == StatusCompleting
}

// ActiveStates lists the statuses for which Active returns true.
var ActiveStates = []Status{StatusPending, StatusRunning, StatusCompleting}

// StatusTable maps upper-case scheduler codes to a Status.
type StatusTable map[string]Status

var sharedStatuses = StatusTable{
	"PENDING":    StatusPending,
	"QUEUED":     StatusPending,
	"HELD":       StatusPending,
	"RUNNING":    StatusRunning,
	"COMPLETING": StatusCompleting,
	"EXITING":    StatusCompleting,
	"COMPLETED":  StatusCompleted,
	"FINISHED":   StatusCompleted,
	"FAILED":     StatusFailed,
}

// Normalize maps a raw scheduler state code to a Status. Lookups are
// case-insensitive and consult table before the shared vocabulary. Trailing
// '*' and '+' flags are ignored and a multi-word code such as
// "CANCELLED by 4840" falls back to its first word. Never fails: unknown
// codes map to StatusOther.
func Normalize(table StatusTable, raw string) Status {
	text := strings.ToUpper(strings.TrimSpace(raw))
	text = strings.TrimRight(text, "*+")
	if text == "" {
		return StatusOther
	}

	if s, ok := lookupStatus(table, text); ok {
		return s
	}

	if parts := strings.Fields(text); len(parts) > 1 {
		if s, ok := lookupStatus(table, parts[0]); ok {
			return s
		}
	}

	return StatusOther
}

func lookupStatus(table StatusTable, code string) (Status, bool) {
	if s, ok := table[code]; ok {
		return s, true
	}
	s, ok := sharedStatuses[code]
	return s, ok
}
