package cluster

// Selector tokens understood by Resolve. Anything else is a literal job id.
const (
	SelectLast = "last"
	SelectAll  = "all"
)

// Resolve narrows jobs according to token. "last" picks the final job in
// scheduler order, "all" keeps everything, and any other token is matched
// against job ids exactly, after reducing it the same way backends reduce
// composite ids ("123.server" matches "123"). An id match may be empty;
// callers decide whether that means "not found".
func Resolve(jobs []Job, token string) ([]Job, error) {
	switch token {
	case SelectLast:
		if len(jobs) == 0 {
			return nil, ErrEmptySelection
		}
		return []Job{jobs[len(jobs)-1]}, nil
	case SelectAll:
		return jobs, nil
	default:
		id := primaryID(token)
		var matched []Job
		for _, j := range jobs {
			if j.ID == id {
				matched = append(matched, j)
			}
		}
		return matched, nil
	}
}
