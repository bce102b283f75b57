package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squeueOutput = `{
	"meta": {"plugin": {"type": "openapi/v0.0.38"}},
	"jobs": [
		{
			"job_id": 34989208,
			"name": "vllm_qwen2_5_72b",
			"user_name": "bsc070916",
			"job_state": "RUNNING",
			"partition": "acc",
			"nodes": "as02r3b15",
			"batch_host": "as02r3b15",
			"standard_output": "/work/slurm-34989208.out",
			"job_resources": {"allocated_nodes": [{"nodename": "as02r3b15"}]}
		},
		{
			"job_id": {"set": true, "infinite": false, "number": 34989209},
			"name": "another_job",
			"user_name": "bsc070916",
			"job_state": ["PENDING"],
			"partition": "acc",
			"nodes": "",
			"batch_host": "",
			"standard_output": ""
		}
	]
}`

func TestSlurmQuery(t *testing.T) {
	runner := &fakeRunner{out: []byte(squeueOutput)}
	jobs, err := NewSlurm(WithRunner(runner)).Query(context.Background(), "bsc070916")
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, [][]string{{"squeue", "--all", "--user=bsc070916", "--json"}}, runner.calls)

	running := jobs[0]
	assert.Equal(t, "34989208", running.ID)
	assert.Equal(t, StatusRunning, running.Status)
	assert.Equal(t, "acc", running.Queue)
	assert.Equal(t, []string{"as02r3b15"}, running.Nodes)
	assert.Equal(t, 1, running.NodeCount)
	assert.Equal(t, "as02r3b15", running.Host)
	assert.Equal(t, "/work/slurm-34989208.out", running.StdoutPath)

	pending := jobs[1]
	assert.Equal(t, "34989209", pending.ID)
	assert.Equal(t, StatusPending, pending.Status)
	assert.Nil(t, pending.Nodes)
	assert.Empty(t, pending.Host)
}

func TestSlurmQueryAllUsers(t *testing.T) {
	runner := &fakeRunner{out: []byte(`{"jobs": []}`)}
	jobs, err := NewSlurm(WithRunner(runner)).Query(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, [][]string{{"squeue", "--all", "--json"}}, runner.calls)
}

func TestSlurmNodesFallBackToHostlist(t *testing.T) {
	out := `{"jobs": [{"job_id": 7, "job_state": "CG", "nodes": "gpu[01-03],login1", "job_resources": {"nodes": {"count": 4}}}]}`
	jobs, err := NewSlurm(WithRunner(&fakeRunner{out: []byte(out)})).Query(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, StatusCompleting, jobs[0].Status)
	assert.Equal(t, []string{"gpu01", "gpu02", "gpu03", "login1"}, jobs[0].Nodes)
	assert.Equal(t, "gpu01", jobs[0].Host)
}

func TestSlurmSkipsMalformedRecord(t *testing.T) {
	logger, logs := newTestLogger()
	out := `{"jobs": [
		{"job_id": 1, "job_state": "RUNNING"},
		{"job_id": "x1", "job_state": "RUNNING"},
		{"name": "no id", "job_state": "RUNNING"},
		{"job_id": 4, "job_state": {"bad": true}},
		{"job_id": 5, "job_state": "TIMEOUT"}
	]}`
	jobs, err := NewSlurm(WithRunner(&fakeRunner{out: []byte(out)}), WithLogger(logger)).Query(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, jobs, 2)
	assert.Equal(t, "1", jobs[0].ID)
	assert.Equal(t, "5", jobs[1].ID)
	assert.Equal(t, StatusFailed, jobs[1].Status)
	assert.Contains(t, logs.String(), "skipping malformed job record")
}

func TestSlurmMissingJobsList(t *testing.T) {
	_, err := NewSlurm(WithRunner(&fakeRunner{out: []byte(`{"errors": []}`)})).Query(context.Background(), "")
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
}

func TestExpandHostlist(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"node1", []string{"node1"}},
		{"a1,b2", []string{"a1", "b2"}},
		{"as04r3b19,as04r5b[26-28]", []string{"as04r3b19", "as04r5b26", "as04r5b27", "as04r5b28"}},
		{"n[1,3-4]", []string{"n1", "n3", "n4"}},
		{"n[008-010]", []string{"n008", "n009", "n010"}},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, expandHostlist(tc.input), "expandHostlist(%q)", tc.input)
	}
}

func TestSlurmExpandsOutputPattern(t *testing.T) {
	out := `{"jobs": [{
		"job_id": 35121055,
		"name": "susy_nc_cpu",
		"user_name": "bsc070916",
		"job_state": "RUNNING",
		"standard_output": "slurm_output/%x_%j.out",
		"current_working_directory": "/work"
	}]}`
	jobs, err := NewSlurm(WithRunner(&fakeRunner{out: []byte(out)})).Query(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "/work/slurm_output/susy_nc_cpu_35121055.out", jobs[0].StdoutPath)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		pattern, workDir, want string
	}{
		{"", "/work", ""},
		{"/abs/%j.out", "/work", "/abs/42.out"},
		{"logs/%u-%x.%j", "/work/", "/work/logs/alice-train.42"},
		{"100%%-%A.out", "", "100%-%A.out"},
		{"trailing%", "", "trailing%"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, outputPath(tc.pattern, tc.workDir, "42", "train", "alice"), "outputPath(%q)", tc.pattern)
	}
}
