package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

var pbsStatuses = StatusTable{
	"Q": StatusPending,
	"H": StatusPending,
	"W": StatusPending,
	"T": StatusPending,
	"S": StatusPending,
	"U": StatusPending,
	"R": StatusRunning,
	"B": StatusRunning,
	"E": StatusCompleting,
	"F": StatusCompleted,
	"C": StatusCompleted,
	"X": StatusCompleted,
}

// PBS queries PBS/TORQUE through `qstat -f -F json`.
type PBS struct {
	cmd command
}

func NewPBS(opts ...Option) *PBS {
	return &PBS{cmd: command{backend: "pbs", name: "qstat", options: buildOptions(opts)}}
}

func (p *PBS) Name() string { return "pbs" }

func (p *PBS) Detect() bool { return p.cmd.detect() }

// Query runs qstat and keeps only owner's jobs when owner is set; qstat has
// no server-side owner filter in full mode.
func (p *PBS) Query(ctx context.Context, owner string) ([]Job, error) {
	out, err := p.cmd.run(ctx, "-f", "-F", "json")
	if err != nil {
		return nil, err
	}
	return p.parse(out, owner)
}

func (p *PBS) JobStatus(ctx context.Context, owner, id string) (Status, error) {
	return jobStatus(ctx, p, owner, id)
}

type pbsRecord struct {
	Name       string `json:"Job_Name"`
	Owner      string `json:"Job_Owner"`
	State      string `json:"job_state"`
	Queue      string `json:"queue"`
	ExecHost   string `json:"exec_host"`
	OutputPath string `json:"Output_Path"`
}

// parse walks the Jobs object token by token so the scheduler's ordering
// survives; a Go map would lose it and "last" depends on it.
func (p *PBS) parse(data []byte, owner string) ([]Job, error) {
	var top struct {
		Jobs json.RawMessage `json:"Jobs"`
	}
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, p.cmd.parseError(err)
	}
	if len(top.Jobs) == 0 || string(top.Jobs) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(top.Jobs))
	if tok, err := dec.Token(); err != nil {
		return nil, p.cmd.parseError(err)
	} else if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, p.cmd.parseError(fmt.Errorf("expected object for Jobs, got %v", tok))
	}

	var jobs []Job
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, p.cmd.parseError(err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, p.cmd.parseError(err)
		}

		var rec pbsRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			p.cmd.dropRecord(key, err)
			continue
		}
		if key == "" {
			p.cmd.dropRecord(key, fmt.Errorf("empty job id"))
			continue
		}

		user := bareUser(rec.Owner)
		if owner != "" && user != owner {
			continue
		}

		jobs = append(jobs, newJob(Job{
			ID:         primaryID(key),
			Name:       rec.Name,
			Owner:      user,
			Status:     Normalize(pbsStatuses, rec.State),
			Queue:      rec.Queue,
			Nodes:      execHostNodes(rec.ExecHost),
			StdoutPath: localPath(rec.OutputPath),
		}))
	}
	return jobs, nil
}

// execHostNodes splits "node1/0*4+node2/0*4" into distinct node names.
func execHostNodes(execHost string) []string {
	var nodes []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(execHost, "+") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), "/")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		nodes = append(nodes, name)
	}
	return nodes
}
