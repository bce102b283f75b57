package engine

// State is the engine's position in its poll/render/sleep cycle.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateRendering
	StateSleeping
	StateDone
)

var stateNames = []string{
	"idle",
	"polling",
	"rendering",
	"sleeping",
	"done",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return stateNames[0]
	}
	return stateNames[s]
}
