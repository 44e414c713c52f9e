package pipeline

// State is the per-item pipeline state.
type State string

const (
	StatePending     State = "PENDING"
	StateInferring   State = "INFERRING"
	StateNormalizing State = "NORMALIZING"
	StateValidating  State = "VALIDATING"
	StateCommitting  State = "COMMITTING"
	StateDone        State = "DONE"
	StateSkipped     State = "SKIPPED"
	StateFailed      State = "FAILED"
)

var transitions = map[State][]State{
	StatePending:     {StateInferring, StateSkipped},
	StateInferring:   {StateNormalizing, StateFailed},
	StateNormalizing: {StateValidating},
	StateValidating:  {StateCommitting, StateFailed},
	StateCommitting:  {StateDone, StateFailed},
}

// CanTransition reports whether the state machine allows s -> next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

// tracker records the path an item takes through the state machine.
type tracker struct {
	history []State
}

func newTracker() *tracker {
	return &tracker{history: []State{StatePending}}
}

func (t *tracker) current() State {
	return t.history[len(t.history)-1]
}

func (t *tracker) advance(next State) State {
	t.history = append(t.history, next)
	return next
}
