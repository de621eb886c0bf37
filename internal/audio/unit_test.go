package audio

import (
	"testing"
	"time"
)

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("definitely not mpeg")); err == nil {
		t.Fatal("expected decode error for garbage input")
	}
	if _, err := Decode(nil); err == nil {
		t.Fatal("expected decode error for empty input")
	}
}

func TestUnitRelease(t *testing.T) {
	u := &Unit{
		pcm:        []byte{1, 2, 3, 4, 5, 6, 7, 8},
		sampleRate: 44100,
		duration:   50 * time.Millisecond,
	}

	if u.Released() {
		t.Fatal("fresh unit reported released")
	}
	if got := u.Size(); got != 8 {
		t.Fatalf("Size = %d, want 8", got)
	}
	if got := u.SampleRate(); got != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", got)
	}
	if got := u.Duration(); got != 50*time.Millisecond {
		t.Fatalf("Duration = %v", got)
	}
	if u.reader() == nil {
		t.Fatal("live unit should produce a reader")
	}

	u.Release()
	if !u.Released() {
		t.Fatal("unit not marked released")
	}
	if got := u.Size(); got != 0 {
		t.Fatalf("Size after release = %d, want 0", got)
	}
	if u.reader() != nil {
		t.Fatal("released unit must not produce a reader")
	}

	// Double release is harmless.
	u.Release()
}
