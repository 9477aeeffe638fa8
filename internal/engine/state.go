package engine

// State is a phase of the executor state machine.
type State int

const (
	StateNotStarted State = iota
	StateSettingUp
	StateRunning
	StateAborted
	StateTearingDown
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateSettingUp:
		return "SettingUp"
	case StateRunning:
		return "Running"
	case StateAborted:
		return "Aborted"
	case StateTearingDown:
		return "TearingDown"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// validTransitions lists the states reachable from each state.
var validTransitions = map[State][]State{
	StateNotStarted:  {StateSettingUp},
	StateSettingUp:   {StateRunning, StateTearingDown},
	StateRunning:     {StateAborted, StateTearingDown},
	StateAborted:     {StateTearingDown},
	StateTearingDown: {StateCompleted},
}

// CanTransition reports whether the state machine may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
