package session

import "sync"

// DispatchState tracks a cue through its per-run lifecycle. A cue with no
// recorded state is pending.
type DispatchState int

const (
	// DispatchPending means the cue has not yet come due this run.
	DispatchPending DispatchState = iota
	// DispatchClaimed means the scheduler has claimed the cue; claim and
	// enqueue are one step, so this state is transient.
	DispatchClaimed
	// DispatchQueued means the cue sits in the playback queue.
	DispatchQueued
	// DispatchPlaying means the cue's audio is playing.
	DispatchPlaying
	// DispatchPlayed means playback completed. Terminal for the run.
	DispatchPlayed
	// DispatchFailed means synthesis or playback failed. Terminal for
	// the run unless retry is configured.
	DispatchFailed
)

// String returns the string representation of the dispatch state.
func (s DispatchState) String() string {
	switch s {
	case DispatchPending:
		return "pending"
	case DispatchClaimed:
		return "claimed"
	case DispatchQueued:
		return "queued"
	case DispatchPlaying:
		return "playing"
	case DispatchPlayed:
		return "played"
	case DispatchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DispatchTable is the per-run dispatch-state arena, indexed by cue
// offset. Its Claim operation is the session's sole concurrency-critical
// primitive: check-and-insert happens under one lock so a cue can never
// be claimed twice even when due-checks race.
type DispatchTable struct {
	mu     sync.Mutex
	states map[int]DispatchState
}

// NewDispatchTable creates an empty table; every offset starts pending.
func NewDispatchTable() *DispatchTable {
	return &DispatchTable{states: make(map[int]DispatchState)}
}

// Claim atomically transitions an offset from pending to claimed. It
// returns true only for the first caller; any concurrent or repeated
// claim for the same offset returns false.
func (t *DispatchTable) Claim(offset int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.states[offset]; exists {
		return false
	}
	t.states[offset] = DispatchClaimed
	return true
}

// Set records a new state for an offset.
func (t *DispatchTable) Set(offset int, state DispatchState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state == DispatchPending {
		delete(t.states, offset)
		return
	}
	t.states[offset] = state
}

// State returns the dispatch state for an offset.
func (t *DispatchTable) State(offset int) DispatchState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[offset]
}

// Reset returns every offset to pending, enabling cues to be claimed
// again on the next run.
func (t *DispatchTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[int]DispatchState)
}

// Counts returns how many offsets are in each non-pending state.
func (t *DispatchTable) Counts() map[DispatchState]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[DispatchState]int)
	for _, s := range t.states {
		counts[s]++
	}
	return counts
}
