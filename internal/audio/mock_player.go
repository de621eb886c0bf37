package audio

import (
	"sync"
	"time"
)

// MockPlayer is a deterministic in-memory player for tests. Load wraps
// payload bytes into a unit without decoding, and playback outcomes are
// either resolved automatically or driven by the test.
type MockPlayer struct {
	mu sync.Mutex

	unlocked  bool
	closed    bool
	paused    bool
	unlockErr error
	loadErr   error
	playErr   error

	// Manual leaves playback attempts unresolved until ResolveCurrent.
	Manual bool
	// AutoDelay defers automatic completion.
	AutoDelay time.Duration

	current   *Playback
	currentU  *Unit
	played    []string
	unlockLog int
}

// NewMockPlayer creates an auto-completing mock player that starts
// unlocked.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{unlocked: true}
}

// NewLockedMockPlayer creates a mock player that fails Play with
// ErrAudioLocked until Unlock is called.
func NewLockedMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// SetUnlockError makes Unlock fail with err.
func (m *MockPlayer) SetUnlockError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockErr = err
}

// SetLoadError makes Load fail with err.
func (m *MockPlayer) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetPlayError makes Play fail with err.
func (m *MockPlayer) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// Load wraps raw payload bytes in a unit without decoding.
func (m *MockPlayer) Load(data []byte) (*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return &Unit{
		pcm:        append([]byte(nil), data...),
		sampleRate: 44100,
		duration:   time.Duration(len(data)) * time.Millisecond,
	}, nil
}

// Unlock marks the device ready.
func (m *MockPlayer) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockLog++
	if m.unlockErr != nil {
		return m.unlockErr
	}
	m.unlocked = true
	return nil
}

// Unlocked reports whether Unlock has succeeded.
func (m *MockPlayer) Unlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlocked
}

// UnlockCalls returns how many times Unlock was invoked.
func (m *MockPlayer) UnlockCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlockLog
}

// Play records the unit and returns a playback that resolves per the
// player's mode.
func (m *MockPlayer) Play(u *Unit) (*Playback, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrPlayerClosed
	}
	if !m.unlocked {
		m.mu.Unlock()
		return nil, ErrAudioLocked
	}
	if m.playErr != nil {
		err := m.playErr
		m.mu.Unlock()
		return nil, err
	}
	if u.Released() {
		m.mu.Unlock()
		return nil, ErrUnitReleased
	}

	// Supersede any current attempt, matching the real player.
	if m.current != nil {
		m.current.resolve(Result{Outcome: OutcomeSuperseded})
	}

	pb := newPlayback()
	m.current = pb
	m.currentU = u
	m.paused = false
	m.played = append(m.played, string(u.pcm))
	manual := m.Manual
	delay := m.AutoDelay
	m.mu.Unlock()

	if !manual {
		go func() {
			if delay > 0 {
				time.Sleep(delay)
			}
			m.finish(pb, Result{Outcome: OutcomeCompleted})
		}()
	}
	return pb, nil
}

// ResolveCurrent terminates the in-flight playback with the given result.
// Only meaningful in Manual mode.
func (m *MockPlayer) ResolveCurrent(r Result) bool {
	m.mu.Lock()
	pb := m.current
	m.mu.Unlock()
	if pb == nil {
		return false
	}
	m.finish(pb, r)
	return true
}

func (m *MockPlayer) finish(pb *Playback, r Result) {
	m.mu.Lock()
	if m.current == pb {
		m.current = nil
		m.currentU = nil
		m.paused = false
	}
	m.mu.Unlock()
	pb.resolve(r)
}

// Pause suspends the current playback.
func (m *MockPlayer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.paused = true
	}
}

// Resume continues a paused playback.
func (m *MockPlayer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

// Stop discards the current playback as superseded.
func (m *MockPlayer) Stop() {
	m.mu.Lock()
	pb := m.current
	m.current = nil
	m.currentU = nil
	m.paused = false
	m.mu.Unlock()
	if pb != nil {
		pb.resolve(Result{Outcome: OutcomeSuperseded})
	}
}

// IsPlaying reports whether an unresolved, unpaused playback exists.
func (m *MockPlayer) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && !m.paused
}

// Paused reports whether the current playback is paused.
func (m *MockPlayer) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.paused
}

// Played returns the payloads played so far, in order.
func (m *MockPlayer) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.played))
	copy(out, m.played)
	return out
}

// Close marks the player unusable.
func (m *MockPlayer) Close() error {
	m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.unlocked = false
	return nil
}
