package cluster

import (
	"os"
	"os/user"
	"strings"
)

// Job is one scheduler job as seen in a single query snapshot. Values are
// never updated in place; every poll builds new ones.
type Job struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Owner      string   `json:"owner"`
	Status     Status   `json:"status"`
	Queue      string   `json:"queue"`
	Nodes      []string `json:"nodes"`
	Host       string   `json:"host"`
	StdoutPath string   `json:"stdout"`

	// NodeCount is zero when the node list is unknown.
	NodeCount int `json:"node_count,omitempty"`
}

// newJob fills the derived attributes of j.
func newJob(j Job) Job {
	if len(j.Nodes) == 0 {
		j.Nodes = nil
	}
	j.NodeCount = len(j.Nodes)
	if j.Host == "" && len(j.Nodes) > 0 {
		j.Host = j.Nodes[0]
	}
	return j
}

// IsActive reports whether the job's status is one of ActiveStates.
func (j Job) IsActive() bool {
	return j.Status.Active()
}

// Lookup returns the job with the given id from a snapshot. Composite ids
// are reduced first.
func Lookup(jobs []Job, id string) (Job, error) {
	want := primaryID(id)
	for _, j := range jobs {
		if j.ID == want {
			return j, nil
		}
	}
	return Job{}, NoSuchJobError{ID: id}
}

// CurrentUser returns the login name of the invoking user.
func CurrentUser() string {
	u, err := user.Current()
	if err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// primaryID reduces a composite id such as "123.server" to "123".
func primaryID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '.'); i > 0 {
		return id[:i]
	}
	return id
}

// bareUser reduces "user@host" to "user".
func bareUser(owner string) string {
	owner = strings.TrimSpace(owner)
	if i := strings.IndexByte(owner, '@'); i >= 0 {
		return owner[:i]
	}
	return owner
}

// localPath strips a "host:" prefix from a reported output path.
func localPath(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexByte(path, ':'); i >= 0 && !strings.Contains(path[:i], "/") {
		return path[i+1:]
	}
	return path
}
