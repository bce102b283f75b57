package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleJobs() []Job {
	return []Job{
		{ID: "101", Name: "train", Status: StatusRunning},
		{ID: "102", Name: "eval", Status: StatusPending},
		{ID: "101", Name: "train-dup", Status: StatusRunning},
		{ID: "103", Name: "post", Status: StatusCompleted},
	}
}

func TestResolveAll(t *testing.T) {
	jobs := sampleJobs()
	got, err := Resolve(jobs, SelectAll)
	require.NoError(t, err)
	assert.Equal(t, jobs, got)

	got, err = Resolve([]Job{}, SelectAll)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveLast(t *testing.T) {
	got, err := Resolve(sampleJobs(), SelectLast)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "103", got[0].ID)

	_, err = Resolve(nil, SelectLast)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestResolveByID(t *testing.T) {
	got, err := Resolve(sampleJobs(), "101")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "train", got[0].Name)
	assert.Equal(t, "train-dup", got[1].Name)

	got, err = Resolve(sampleJobs(), "999")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveCompositeID(t *testing.T) {
	got, err := Resolve(sampleJobs(), "102.pbs-head")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "eval", got[0].Name)

	j, err := Lookup(sampleJobs(), "103.pbs-head")
	require.NoError(t, err)
	assert.Equal(t, "post", j.Name)
}

func TestLookup(t *testing.T) {
	j, err := Lookup(sampleJobs(), "102")
	require.NoError(t, err)
	assert.Equal(t, "eval", j.Name)

	_, err = Lookup(sampleJobs(), "404")
	assert.ErrorIs(t, err, ErrNoSuchJob)
	var nsj NoSuchJobError
	require.ErrorAs(t, err, &nsj)
	assert.Equal(t, "404", nsj.ID)
}

func TestNewJobDerivesHostAndNodeCount(t *testing.T) {
	j := newJob(Job{ID: "1", Nodes: []string{"n1", "n2"}})
	assert.Equal(t, "n1", j.Host)
	assert.Equal(t, 2, j.NodeCount)

	j = newJob(Job{ID: "2", Nodes: []string{"n1"}, Host: "batch"})
	assert.Equal(t, "batch", j.Host)

	j = newJob(Job{ID: "3", Nodes: []string{}})
	assert.Nil(t, j.Nodes)
	assert.Zero(t, j.NodeCount)
	assert.Empty(t, j.Host)
}

func TestFieldQuirks(t *testing.T) {
	assert.Equal(t, "123", primaryID("123.pbs-server"))
	assert.Equal(t, "123", primaryID("123"))
	assert.Equal(t, "alice", bareUser("alice@host1"))
	assert.Equal(t, "alice", bareUser("alice"))
	assert.Equal(t, "/home/a/job.o1", localPath("login1:/home/a/job.o1"))
	assert.Equal(t, "/home/a/job.o1", localPath("/home/a/job.o1"))
	assert.Equal(t, "", localPath(""))
}
