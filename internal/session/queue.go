package session

import (
	"sync"
	"time"

	"github.com/dgnsrekt/stillness/internal/script"
)

// QueueStats tracks playback queue activity.
type QueueStats struct {
	TotalEnqueued int64
	TotalDequeued int64
	TotalDropped  int64 // Entries discarded by Clear
	CurrentSize   int
	PeakSize      int
	LastEnqueue   time.Time
	LastDequeue   time.Time
}

// PlaybackQueue is the FIFO of claimed-but-not-yet-played cues. The
// scheduler appends in claim order and the player drains strictly from
// the head, which is what guarantees non-decreasing playback order.
type PlaybackQueue struct {
	mu    sync.Mutex
	cues  []script.Cue
	stats QueueStats
}

// NewPlaybackQueue creates an empty queue.
func NewPlaybackQueue() *PlaybackQueue {
	return &PlaybackQueue{}
}

// Enqueue appends a claimed cue.
func (q *PlaybackQueue) Enqueue(cue script.Cue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cues = append(q.cues, cue)
	q.stats.TotalEnqueued++
	q.stats.LastEnqueue = time.Now()
	q.stats.CurrentSize = len(q.cues)
	if len(q.cues) > q.stats.PeakSize {
		q.stats.PeakSize = len(q.cues)
	}
}

// Dequeue removes and returns the head of the queue. It never blocks;
// the second return is false when the queue is empty.
func (q *PlaybackQueue) Dequeue() (script.Cue, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.cues) == 0 {
		return script.Cue{}, false
	}
	cue := q.cues[0]
	q.cues = q.cues[1:]
	q.stats.TotalDequeued++
	q.stats.LastDequeue = time.Now()
	q.stats.CurrentSize = len(q.cues)
	return cue, true
}

// Peek returns the head without removing it.
func (q *PlaybackQueue) Peek() (script.Cue, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.cues) == 0 {
		return script.Cue{}, false
	}
	return q.cues[0], true
}

// Len returns the current queue length.
func (q *PlaybackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cues)
}

// Clear discards all queued cues, counting them as dropped.
func (q *PlaybackQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.TotalDropped += int64(len(q.cues))
	q.cues = nil
	q.stats.CurrentSize = 0
}

// Stats returns a copy of the queue statistics.
func (q *PlaybackQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
