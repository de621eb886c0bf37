package session

import (
	"context"

	"github.com/dgnsrekt/stillness/internal/audio"
	"github.com/dgnsrekt/stillness/internal/synth"
)

// Gateway is the remote speech-synthesis collaborator. The controller
// relies on the gateway enforcing its own request timeout; a call with no
// bound would stall the playback queue indefinitely.
type Gateway interface {
	// SynthesizeOne converts one cue's text to raw MPEG audio bytes.
	SynthesizeOne(ctx context.Context, text string, voice synth.Voice) ([]byte, error)

	// SynthesizeBatch converts all segments in a single call, returning
	// one result per segment correlated by offset. Per-segment failures
	// are reported inside the results; an error means the batch itself
	// failed.
	SynthesizeBatch(ctx context.Context, segments []synth.Segment, voice synth.Voice) ([]synth.BatchResult, error)
}

// Player is the single-slot audio output collaborator. Exactly one unit
// plays at a time; a new Play supersedes the previous attempt. Only the
// controller may start or stop playback.
type Player interface {
	// Load turns raw gateway audio bytes into a playable unit.
	Load(data []byte) (*audio.Unit, error)

	// Play starts the unit, superseding any current playback. Before a
	// successful Unlock it fails with audio.ErrAudioLocked.
	Play(u *audio.Unit) (*audio.Playback, error)

	// Unlock prepares the output device; best effort.
	Unlock() error

	// Unlocked reports whether the device is ready.
	Unlocked() bool

	// Pause suspends the current playback without discarding it.
	Pause()

	// Resume continues a paused playback.
	Resume()

	// Stop discards the current playback as superseded.
	Stop()

	// IsPlaying reports whether a unit is actively playing.
	IsPlaying() bool

	// Close releases the device.
	Close() error
}
