package session

import (
	"sync"

	"github.com/dgnsrekt/stillness/internal/script"
)

// Scheduler matches the session clock against the cue set. On each tick
// it looks up the cue due at exactly that second and, if the cue is still
// pending, claims and enqueues it in one atomic step.
//
// Cues are matched by exact integer-second equality, not by range: the
// clock's monotonic counter never skips a second, so equality is
// sufficient and cheaper than scanning.
type Scheduler struct {
	mu       sync.Mutex
	byOffset map[int]script.Cue
	dispatch *DispatchTable
	queue    *PlaybackQueue
}

// NewScheduler creates a scheduler over the shared dispatch table and
// playback queue.
func NewScheduler(dispatch *DispatchTable, queue *PlaybackQueue) *Scheduler {
	return &Scheduler{
		byOffset: make(map[int]script.Cue),
		dispatch: dispatch,
		queue:    queue,
	}
}

// SetCues replaces the cue set. The caller is responsible for resetting
// the dispatch table and queue alongside, since offsets are no longer
// guaranteed stable.
func (s *Scheduler) SetCues(cues []script.Cue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOffset = make(map[int]script.Cue, len(cues))
	for _, cue := range cues {
		s.byOffset[cue.OffsetSeconds] = cue
	}
}

// Dispatch claims and enqueues the cue due at the given second, if any.
// It returns the cue and true only when this call performed the claim;
// re-entrant calls for the same second are idempotent no-ops because the
// dispatch table's Claim has insert semantics.
func (s *Scheduler) Dispatch(second int) (script.Cue, bool) {
	s.mu.Lock()
	cue, ok := s.byOffset[second]
	s.mu.Unlock()
	if !ok {
		return script.Cue{}, false
	}

	if !s.dispatch.Claim(cue.OffsetSeconds) {
		return script.Cue{}, false
	}

	// Claim and enqueue are one logical step; the queued state replaces
	// the transient claimed state immediately.
	s.queue.Enqueue(cue)
	s.dispatch.Set(cue.OffsetSeconds, DispatchQueued)
	return cue, true
}

// CueAt returns the cue scheduled at the given offset.
func (s *Scheduler) CueAt(offset int) (script.Cue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cue, ok := s.byOffset[offset]
	return cue, ok
}

// Len returns the number of scheduled cues.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byOffset)
}
