package cluster

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoBackendFound is returned by Select when no scheduler is detected.
	ErrNoBackendFound = errors.New("no supported cluster scheduler found")

	// ErrEmptySelection is returned when "last" is resolved against no jobs.
	ErrEmptySelection = errors.New("no jobs to select from")

	// ErrNoSuchJob matches any NoSuchJobError via errors.Is.
	ErrNoSuchJob = errors.New("job not found")
)

// NoSuchJobError is returned when a job id is absent from a fresh snapshot.
// Callers usually read it as "the job has left the queue".
type NoSuchJobError struct {
	ID string
}

func (e NoSuchJobError) Error() string {
	return fmt.Sprintf("job %s not found or finished", e.ID)
}

func (e NoSuchJobError) Is(target error) bool {
	return target == ErrNoSuchJob
}

// QueryError is returned when the scheduler query command fails or its
// output cannot be parsed.
type QueryError struct {
	Backend string
	Op      string
	Stderr  string
	Err     error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Backend, e.Op, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
