package packager

// State is a step of one export's packaging lifecycle.
type State int

const (
	StateBuilding State = iota
	StateCompressing
	StateStreaming
	StateCleanedUp
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateCompressing:
		return "compressing"
	case StateStreaming:
		return "streaming"
	case StateCleanedUp:
		return "cleaned-up"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateCleanedUp
}
