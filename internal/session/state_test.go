package session

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateReady, "ready"},
		{StateRunning, "running"},
		{StatePaused, "paused"},
		{StateCompleted, "completed"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		allowed bool
	}{
		{"idle to ready", StateIdle, StateReady, true},
		{"idle to running", StateIdle, StateRunning, false},
		{"ready to running", StateReady, StateRunning, true},
		{"running to paused", StateRunning, StatePaused, true},
		{"running to completed", StateRunning, StateCompleted, true},
		{"paused to running", StatePaused, StateRunning, true},
		{"paused to ready", StatePaused, StateReady, true},
		{"completed to running", StateCompleted, StateRunning, false},
		{"completed to ready", StateCompleted, StateReady, true},
		{"running to idle", StateRunning, StateIdle, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachine()
			forceState(sm, tt.from)
			if got := sm.Transition(tt.to); got != tt.allowed {
				t.Errorf("Transition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

// forceState walks the machine to the target through legal transitions.
func forceState(sm *StateMachine, target State) {
	switch target {
	case StateIdle:
	case StateReady:
		sm.Transition(StateReady)
	case StateRunning:
		sm.Transition(StateReady)
		sm.Transition(StateRunning)
	case StatePaused:
		sm.Transition(StateReady)
		sm.Transition(StateRunning)
		sm.Transition(StatePaused)
	case StateCompleted:
		sm.Transition(StateReady)
		sm.Transition(StateRunning)
		sm.Transition(StateCompleted)
	}
}

func TestStateMachineOnEnter(t *testing.T) {
	sm := NewStateMachine()
	entered := 0
	sm.OnEnter(StateReady, func() { entered++ })

	sm.Transition(StateReady)
	if entered != 1 {
		t.Fatalf("OnEnter fired %d times, want 1", entered)
	}

	// Rejected transitions must not fire callbacks.
	sm.OnEnter(StateCompleted, func() { t.Fatal("callback for rejected transition") })
	forceStateTo := sm.Transition(StateCompleted)
	if forceStateTo {
		t.Fatal("ready to completed should be rejected")
	}
}

func TestStatePredicates(t *testing.T) {
	if !StateReady.CanStart() || !StatePaused.CanStart() {
		t.Error("ready and paused should be startable")
	}
	if StateCompleted.CanStart() {
		t.Error("completed requires a reset before starting")
	}
	if !StateRunning.CanPause() || StateReady.CanPause() {
		t.Error("only running can pause")
	}
	if StateIdle.CanReset() {
		t.Error("idle has nothing to reset")
	}
	if !StateCompleted.CanReset() {
		t.Error("completed should be resettable")
	}
}
