package session

// State represents the lifecycle state of a session.
type State int

const (
	// StateIdle indicates no cue set has been loaded.
	StateIdle State = iota
	// StateReady indicates cues are loaded and the clock is at zero or
	// was reset.
	StateReady
	// StateRunning indicates the clock is ticking and cues dispatch.
	StateRunning
	// StatePaused indicates the clock is frozen with dispatch state and
	// queue preserved.
	StatePaused
	// StateCompleted indicates the clock reached the configured duration.
	StateCompleted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// CanStart returns true if a session in this state may start or resume.
// A completed session must be reset before it can run again.
func (s State) CanStart() bool {
	return s == StateReady || s == StatePaused
}

// CanPause returns true if a session in this state may pause.
func (s State) CanPause() bool {
	return s == StateRunning
}

// CanReset returns true if a session in this state may reset.
func (s State) CanReset() bool {
	return s != StateIdle
}

// StateMachine guards session lifecycle transitions.
type StateMachine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
}

// NewStateMachine creates a state machine with the valid session
// transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:      {StateReady},
			StateReady:     {StateRunning, StateReady, StateIdle},
			StateRunning:   {StatePaused, StateCompleted, StateReady, StateIdle},
			StatePaused:    {StateRunning, StateReady, StateIdle},
			StateCompleted: {StateReady, StateIdle},
		},
		onEnter: make(map[State]func()),
	}
}

// Transition attempts to move to the given state, returning whether the
// transition was valid.
func (sm *StateMachine) Transition(to State) bool {
	valid := false
	for _, next := range sm.transitions[sm.current] {
		if next == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to
	if fn, ok := sm.onEnter[to]; ok && fn != nil {
		fn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	return sm.current
}

// OnEnter registers a callback invoked after entering a state.
func (sm *StateMachine) OnEnter(state State, fn func()) {
	sm.onEnter[state] = fn
}
