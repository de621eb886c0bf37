package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

var (
	// ErrAudioLocked is returned by Play before the output device has
	// been unlocked. Some platforms refuse programmatic playback until a
	// user gesture has warmed the device, so this failure carries its own
	// remedy and is kept distinct from generic playback errors.
	ErrAudioLocked = errors.New("audio: output is locked; unlock playback first")

	// ErrUnitReleased is returned when asked to play a unit whose buffer
	// has already been freed.
	ErrUnitReleased = errors.New("audio: unit has been released")

	// ErrPlayerClosed is returned after Close.
	ErrPlayerClosed = errors.New("audio: player is closed")
)

// PlayerConfig contains configuration for the output device.
type PlayerConfig struct {
	SampleRate int           // Device rate; the gateway's MPEG must match
	Channels   int           // 1 = mono, 2 = stereo
	PollEvery  time.Duration // Completion poll cadence
}

// DefaultPlayerConfig returns the default device configuration. go-mp3
// decodes to stereo, so the device is opened stereo.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		Channels:   2,
		PollEvery:  10 * time.Millisecond,
	}
}

// Player plays at most one unit at a time on the system audio device. A
// new Play fully supersedes the previous playback; the superseded attempt
// resolves with OutcomeSuperseded. The device is created lazily by Unlock
// so that construction never touches audio hardware.
type Player struct {
	cfg PlayerConfig

	mu       sync.Mutex
	ctx      *oto.Context
	unlocked bool
	closed   bool

	// Current slot. active keeps the unit's PCM alive while the oto
	// player streams from it.
	current  *oto.Player
	active   *Unit
	playback *Playback
	paused   bool
}

// NewPlayer creates a player. No device resources are acquired until
// Unlock.
func NewPlayer(cfg PlayerConfig) *Player {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultPlayerConfig().SampleRate
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		cfg.Channels = DefaultPlayerConfig().Channels
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = DefaultPlayerConfig().PollEvery
	}
	return &Player{cfg: cfg}
}

// Load decodes a gateway MPEG payload into a playable unit.
func (p *Player) Load(data []byte) (*Unit, error) {
	return Decode(data)
}

// Unlock prepares the output device, playing a brief no-op buffer to warm
// it. Best effort: callers treat failure as "stay locked" and may retry
// on the next start.
func (p *Player) Unlock() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if p.unlocked {
		return nil
	}

	if p.ctx == nil {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   p.cfg.SampleRate,
			ChannelCount: p.cfg.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			return fmt.Errorf("audio: creating device context: %w", err)
		}
		select {
		case <-ready:
		case <-time.After(3 * time.Second):
			return errors.New("audio: device context not ready")
		}
		p.ctx = ctx
	}

	// ~50ms of silence warms the device without audible output.
	frames := p.cfg.SampleRate / 20
	silence := make([]byte, frames*p.cfg.Channels*2)
	warm := p.ctx.NewPlayer(bytes.NewReader(silence))
	warm.Play()
	for warm.IsPlaying() {
		time.Sleep(p.cfg.PollEvery)
	}
	if err := warm.Close(); err != nil {
		log.Debug("Unlock warm-up player close failed", "error", err)
	}

	p.unlocked = true
	log.Debug("Audio output unlocked", "sample_rate", p.cfg.SampleRate, "channels", p.cfg.Channels)
	return nil
}

// Unlocked reports whether the device is ready for playback.
func (p *Player) Unlocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unlocked
}

// Play starts playing the unit, superseding any current playback. The
// returned Playback resolves exactly once with the attempt's outcome.
func (p *Player) Play(u *Unit) (*Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPlayerClosed
	}
	if !p.unlocked {
		return nil, ErrAudioLocked
	}

	reader := u.reader()
	if reader == nil {
		return nil, ErrUnitReleased
	}

	p.supersedeLocked()

	op := p.ctx.NewPlayer(reader)
	pb := newPlayback()
	p.current = op
	p.active = u
	p.playback = pb
	p.paused = false
	op.Play()

	go p.watch(op, pb)
	return pb, nil
}

// watch polls the device player until the attempt reaches a terminal
// outcome, then clears the slot if this attempt still owns it.
func (p *Player) watch(op *oto.Player, pb *Playback) {
	ticker := time.NewTicker(p.cfg.PollEvery)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.current != op {
			// Superseded; the displacing call already resolved pb.
			p.mu.Unlock()
			return
		}
		if p.paused {
			p.mu.Unlock()
			continue
		}
		if op.IsPlaying() {
			p.mu.Unlock()
			continue
		}

		err := op.Err()
		p.current = nil
		p.active = nil
		p.playback = nil
		p.mu.Unlock()

		if closeErr := op.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			pb.resolve(Result{Outcome: OutcomeFailed, Err: err})
		} else {
			pb.resolve(Result{Outcome: OutcomeCompleted})
		}
		return
	}
}

// Pause suspends the current playback, if any, keeping its position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && !p.paused {
		p.current.Pause()
		p.paused = true
	}
}

// Resume continues a paused playback, if any.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.paused {
		p.current.Play()
		p.paused = false
	}
}

// Stop discards the current playback; its Playback resolves with
// OutcomeSuperseded.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.supersedeLocked()
}

// IsPlaying reports whether a unit is actively playing (not paused).
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && !p.paused && p.current.IsPlaying()
}

// Close stops playback and releases the device. The player cannot be
// reused afterwards.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.supersedeLocked()
	p.closed = true
	p.unlocked = false
	// oto contexts cannot be destroyed; suspending at least stops the
	// device loop before the reference is dropped.
	if p.ctx != nil {
		if err := p.ctx.Suspend(); err != nil {
			log.Debug("Audio context suspend failed", "error", err)
		}
		p.ctx = nil
	}
	return nil
}

// supersedeLocked resolves and tears down the current slot. Caller holds
// p.mu.
func (p *Player) supersedeLocked() {
	if p.current == nil {
		return
	}
	op, pb := p.current, p.playback
	p.current = nil
	p.active = nil
	p.playback = nil
	p.paused = false

	if err := op.Close(); err != nil {
		log.Debug("Superseded player close failed", "error", err)
	}
	if pb != nil {
		pb.resolve(Result{Outcome: OutcomeSuperseded})
	}
}
