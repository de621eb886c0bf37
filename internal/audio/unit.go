// Package audio provides the single-slot audio playback layer: decoding
// gateway MPEG payloads into playable units and playing exactly one unit
// at a time on the system output device.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// Unit is one decoded, playable piece of audio. Units hold their PCM data
// alive for the whole playback (releasing a playing unit's buffer causes
// audible corruption) and must be released once no longer needed.
type Unit struct {
	mu         sync.Mutex
	pcm        []byte
	sampleRate int
	duration   time.Duration
	released   bool
}

// Decode converts raw MPEG audio bytes into a playable unit. go-mp3
// always emits 16-bit little-endian stereo PCM.
func Decode(data []byte) (*Unit, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("audio: empty payload")
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("audio: decoding mpeg: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("audio: reading pcm: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("audio: payload decoded to no samples")
	}

	rate := dec.SampleRate()
	// 2 channels x 2 bytes per sample.
	frames := len(pcm) / 4
	return &Unit{
		pcm:        pcm,
		sampleRate: rate,
		duration:   time.Duration(frames) * time.Second / time.Duration(rate),
	}, nil
}

// SampleRate returns the unit's sample rate in Hz.
func (u *Unit) SampleRate() int {
	return u.sampleRate
}

// Duration returns the playback duration of the unit.
func (u *Unit) Duration() time.Duration {
	return u.duration
}

// Size returns the PCM byte length, zero once released.
func (u *Unit) Size() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pcm)
}

// Release frees the unit's PCM buffer. Safe to call more than once.
func (u *Unit) Release() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pcm = nil
	u.released = true
}

// Released reports whether Release has been called.
func (u *Unit) Released() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.released
}

// reader returns a fresh reader over the PCM data, or nil if released.
func (u *Unit) reader() io.Reader {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.released {
		return nil
	}
	return bytes.NewReader(u.pcm)
}
