package session

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/stillness/internal/audio"
	"github.com/dgnsrekt/stillness/internal/script"
	"github.com/dgnsrekt/stillness/internal/synth"
)

// PreloadStatus tracks the bulk-preload phase.
type PreloadStatus int

const (
	// PreloadIdle means no preload has run for the current cue set.
	PreloadIdle PreloadStatus = iota
	// PreloadLoading means the batch call is in flight or being applied.
	PreloadLoading
	// PreloadComplete means every batch result has been processed,
	// regardless of individual per-cue failures.
	PreloadComplete
	// PreloadError means the batch call itself failed; the session
	// degrades to live per-cue synthesis.
	PreloadError
)

// String returns the string representation of the preload status.
func (s PreloadStatus) String() string {
	switch s {
	case PreloadIdle:
		return "idle"
	case PreloadLoading:
		return "loading"
	case PreloadComplete:
		return "complete"
	case PreloadError:
		return "error"
	default:
		return "unknown"
	}
}

// PreloadManager fetches all cue audio ahead of the session via one batch
// gateway call and caches the decoded units by offset. Entries live until
// the cue set changes or the session tears down; a session reset keeps
// the cache because rebuilding it is expensive.
type PreloadManager struct {
	mu         sync.Mutex
	status     PreloadStatus
	progress   int // 0-100, rounded
	cache      map[int]*audio.Unit
	resolved   int
	failed     int
	lastErr    error
	gen        int // Bumped by ReleaseAll so stale batch results are discarded
	onProgress func(percent int)
}

// NewPreloadManager creates an idle manager.
func NewPreloadManager() *PreloadManager {
	return &PreloadManager{cache: make(map[int]*audio.Unit)}
}

// OnProgress registers a callback fired after each processed result with
// the rounded completion percentage.
func (m *PreloadManager) OnProgress(fn func(percent int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onProgress = fn
}

// Run performs the one-shot preload for the cue set. It is a no-op error
// if a preload is already loading or complete for this cue set. Per-cue
// failures inside a successful batch are tolerated; those offsets fall
// back to live synthesis at play time.
func (m *PreloadManager) Run(ctx context.Context, gateway Gateway, player Player, cues []script.Cue, voice synth.Voice) error {
	if len(cues) == 0 {
		return nil
	}

	m.mu.Lock()
	if m.status == PreloadLoading || m.status == PreloadComplete {
		m.mu.Unlock()
		return ErrPreloadActive
	}
	m.status = PreloadLoading
	m.progress = 0
	m.resolved = 0
	m.failed = 0
	m.lastErr = nil
	gen := m.gen
	m.mu.Unlock()

	segments := make([]synth.Segment, len(cues))
	for i, cue := range cues {
		segments[i] = synth.Segment{Offset: cue.OffsetSeconds, Text: cue.Text}
	}

	results, err := gateway.SynthesizeBatch(ctx, segments, voice)
	if err != nil {
		m.mu.Lock()
		if m.gen == gen {
			m.status = PreloadError
			m.lastErr = err
		}
		m.mu.Unlock()
		return newError(fmt.Errorf("preload batch failed: %w", err), KindPreload, -1)
	}

	total := len(results)
	for i, r := range results {
		var unit *audio.Unit
		ok := r.Success
		if ok {
			unit, err = player.Load(r.Audio)
			if err != nil {
				log.Debug("Preload result undecodable", "offset", r.Offset, "error", err)
				ok = false
			}
		} else {
			log.Debug("Preload segment failed", "offset", r.Offset, "reason", r.ErrorReason)
		}

		m.mu.Lock()
		if m.gen != gen {
			// The cue set changed mid-preload; the remaining results
			// belong to a discarded session.
			m.mu.Unlock()
			if unit != nil {
				unit.Release()
			}
			return nil
		}
		if ok {
			m.cache[r.Offset] = unit
			m.resolved++
		} else {
			m.failed++
		}
		m.progress = int(math.Round(float64(i+1) / float64(total) * 100))
		fn := m.onProgress
		progress := m.progress
		m.mu.Unlock()

		if fn != nil {
			fn(progress)
		}
	}

	m.mu.Lock()
	if m.gen == gen {
		m.status = PreloadComplete
	}
	resolved, failed := m.resolved, m.failed
	m.mu.Unlock()

	log.Debug("Preload complete", "resolved", resolved, "failed", failed)
	return nil
}

// Lookup returns the cached unit for an offset. Cached units are shared
// across runs; callers must not release them.
func (m *PreloadManager) Lookup(offset int) (*audio.Unit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	unit, ok := m.cache[offset]
	return unit, ok
}

// Status returns the current preload status.
func (m *PreloadManager) Status() PreloadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Progress returns the rounded completion percentage.
func (m *PreloadManager) Progress() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// Counts returns how many cues resolved and how many failed.
func (m *PreloadManager) Counts() (resolved, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved, m.failed
}

// Err returns the batch-level error, if the preload failed outright.
func (m *PreloadManager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// ReleaseAll frees every cached unit and returns the manager to idle.
// Any in-flight Run becomes stale and its remaining results are dropped.
func (m *PreloadManager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, unit := range m.cache {
		unit.Release()
	}
	m.cache = make(map[int]*audio.Unit)
	m.status = PreloadIdle
	m.progress = 0
	m.resolved = 0
	m.failed = 0
	m.lastErr = nil
	m.gen++
}
