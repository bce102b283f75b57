package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var slurmStatuses = StatusTable{
	"PD":            StatusPending,
	"CF":            StatusPending,
	"CONFIGURING":   StatusPending,
	"RQ":            StatusPending,
	"REQUEUED":      StatusPending,
	"RH":            StatusPending,
	"REQUEUE_HOLD":  StatusPending,
	"RF":            StatusPending,
	"REQUEUE_FED":   StatusPending,
	"RS":            StatusPending,
	"RESIZING":      StatusPending,
	"S":             StatusPending,
	"SUSPENDED":     StatusPending,
	"ST":            StatusPending,
	"STOPPED":       StatusPending,
	"R":             StatusRunning,
	"SO":            StatusCompleting,
	"STAGE_OUT":     StatusCompleting,
	"CG":            StatusCompleting,
	"CD":            StatusCompleted,
	"F":             StatusFailed,
	"CA":            StatusFailed,
	"CANCELLED":     StatusFailed,
	"TO":            StatusFailed,
	"TIMEOUT":       StatusFailed,
	"NF":            StatusFailed,
	"NODE_FAIL":     StatusFailed,
	"OOM":           StatusFailed,
	"OUT_OF_MEMORY": StatusFailed,
	"BF":            StatusFailed,
	"BOOT_FAIL":     StatusFailed,
	"DL":            StatusFailed,
	"DEADLINE":      StatusFailed,
	"PR":            StatusFailed,
	"PREEMPTED":     StatusFailed,
}

// Slurm queries Slurm through `squeue --json`.
type Slurm struct {
	cmd command
}

func NewSlurm(opts ...Option) *Slurm {
	return &Slurm{cmd: command{backend: "slurm", name: "squeue", options: buildOptions(opts)}}
}

func (s *Slurm) Name() string { return "slurm" }

func (s *Slurm) Detect() bool { return s.cmd.detect() }

// Query scopes to owner on the squeue side.
func (s *Slurm) Query(ctx context.Context, owner string) ([]Job, error) {
	args := []string{"--all"}
	if owner != "" {
		args = append(args, "--user="+owner)
	}
	args = append(args, "--json")

	out, err := s.cmd.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return s.parse(out)
}

func (s *Slurm) JobStatus(ctx context.Context, owner, id string) (Status, error) {
	return jobStatus(ctx, s, owner, id)
}

type slurmRecord struct {
	JobID          slurmNumber     `json:"job_id"`
	Name           string          `json:"name"`
	User           string          `json:"user_name"`
	State          slurmState      `json:"job_state"`
	Partition      string          `json:"partition"`
	Nodes          string          `json:"nodes"`
	BatchHost      string          `json:"batch_host"`
	StandardOutput string          `json:"standard_output"`
	WorkDir        string          `json:"current_working_directory"`
	JobResources   json.RawMessage `json:"job_resources"`
}

func (s *Slurm) parse(data []byte) ([]Job, error) {
	var top struct {
		Jobs *[]json.RawMessage `json:"jobs"`
	}
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, s.cmd.parseError(err)
	}
	if top.Jobs == nil {
		return nil, s.cmd.parseError(errors.New(`missing "jobs" list`))
	}

	jobs := make([]Job, 0, len(*top.Jobs))
	for i, raw := range *top.Jobs {
		var rec slurmRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.cmd.dropRecord(fmt.Sprintf("#%d", i), err)
			continue
		}
		if !rec.JobID.set {
			s.cmd.dropRecord(fmt.Sprintf("#%d", i), errors.New("missing job_id"))
			continue
		}

		nodes := allocatedNodes(rec.JobResources)
		if len(nodes) == 0 {
			nodes = expandHostlist(rec.Nodes)
		}

		id := strconv.FormatInt(rec.JobID.value, 10)
		user := bareUser(rec.User)
		jobs = append(jobs, newJob(Job{
			ID:         id,
			Name:       rec.Name,
			Owner:      user,
			Status:     Normalize(slurmStatuses, rec.State.String()),
			Queue:      rec.Partition,
			Nodes:      nodes,
			Host:       rec.BatchHost,
			StdoutPath: outputPath(localPath(rec.StandardOutput), rec.WorkDir, id, rec.Name, user),
		}))
	}
	return jobs, nil
}

// slurmNumber accepts both a bare number and the {"set":..,"number":..}
// wrapper newer squeue versions emit.
type slurmNumber struct {
	value int64
	set   bool
}

func (n *slurmNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '{' {
		var wrapped struct {
			Set    bool  `json:"set"`
			Number int64 `json:"number"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		n.value, n.set = wrapped.Number, wrapped.Set
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		n.value, n.set = v, true
		return nil
	}
	if err := json.Unmarshal(b, &n.value); err != nil {
		return err
	}
	n.set = true
	return nil
}

// slurmState accepts "RUNNING" as well as ["RUNNING", "..."]; only the
// first entry is the base state.
type slurmState []string

func (st *slurmState) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*st = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*st = slurmState{s}
	return nil
}

func (st slurmState) String() string {
	if len(st) == 0 {
		return ""
	}
	return st[0]
}

// allocatedNodes reads job_resources.allocated_nodes[].nodename. Shapes from
// other squeue versions yield nil so the caller falls back to "nodes".
func allocatedNodes(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var res struct {
		AllocatedNodes []struct {
			Nodename string `json:"nodename"`
		} `json:"allocated_nodes"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}
	var nodes []string
	for _, n := range res.AllocatedNodes {
		if n.Nodename != "" {
			nodes = append(nodes, n.Nodename)
		}
	}
	return nodes
}

// expandHostlist expands a Slurm hostlist such as "gpu[01-03,07],login1".
func expandHostlist(list string) []string {
	var hosts []string
	for _, item := range splitHostlist(strings.TrimSpace(list)) {
		lb := strings.IndexByte(item, '[')
		rb := strings.LastIndexByte(item, ']')
		if lb < 0 || rb < lb {
			hosts = append(hosts, item)
			continue
		}
		prefix, suffix := item[:lb], item[rb+1:]
		for _, r := range strings.Split(item[lb+1:rb], ",") {
			lo, hi, isRange := strings.Cut(r, "-")
			if !isRange {
				hosts = append(hosts, prefix+lo+suffix)
				continue
			}
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || end < start {
				hosts = append(hosts, prefix+r+suffix)
				continue
			}
			for i := start; i <= end; i++ {
				hosts = append(hosts, fmt.Sprintf("%s%0*d%s", prefix, len(lo), i, suffix))
			}
		}
	}
	return hosts
}

// splitHostlist splits on commas outside brackets.
func splitHostlist(list string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				if s := strings.TrimSpace(list[start:i]); s != "" {
					parts = append(parts, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(list[start:]); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// outputPath expands the filename patterns sbatch accepts for --output
// (%j, %x, %u, %%) and resolves a relative result against the job's working
// directory. Some squeue versions report the pattern unexpanded.
func outputPath(pattern, workDir, jobID, jobName, user string) string {
	if pattern == "" {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' || i+1 == len(pattern) {
			b.WriteByte(pattern[i])
			continue
		}
		i++
		switch pattern[i] {
		case 'j':
			b.WriteString(jobID)
		case 'x':
			b.WriteString(jobName)
		case 'u':
			b.WriteString(user)
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(pattern[i])
		}
	}

	path := b.String()
	if !strings.HasPrefix(path, "/") && workDir != "" {
		path = strings.TrimRight(workDir, "/") + "/" + path
	}
	return path
}
