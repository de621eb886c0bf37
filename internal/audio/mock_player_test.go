package audio

import (
	"errors"
	"testing"
	"time"
)

func mustLoad(t *testing.T, p *MockPlayer, payload string) *Unit {
	t.Helper()
	u, err := p.Load([]byte(payload))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return u
}

func TestMockPlayerAutoCompletes(t *testing.T) {
	p := NewMockPlayer()
	u := mustLoad(t, p, "chime")

	pb, err := p.Play(u)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	select {
	case res := <-pb.Done:
		if res.Outcome != OutcomeCompleted {
			t.Fatalf("outcome = %s", res.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("playback never completed")
	}

	played := p.Played()
	if len(played) != 1 || played[0] != "chime" {
		t.Fatalf("played = %v", played)
	}
}

func TestMockPlayerLockedUntilUnlock(t *testing.T) {
	p := NewLockedMockPlayer()
	u := mustLoad(t, p, "tone")

	if _, err := p.Play(u); !errors.Is(err, ErrAudioLocked) {
		t.Fatalf("Play while locked = %v, want ErrAudioLocked", err)
	}
	if p.Unlocked() {
		t.Fatal("player should report locked")
	}

	if err := p.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !p.Unlocked() {
		t.Fatal("player should report unlocked")
	}
	if _, err := p.Play(u); err != nil {
		t.Fatalf("Play after unlock: %v", err)
	}
	if got := p.UnlockCalls(); got != 1 {
		t.Fatalf("UnlockCalls = %d, want 1", got)
	}
}

func TestMockPlayerSupersedesCurrent(t *testing.T) {
	p := NewMockPlayer()
	p.Manual = true

	first, err := p.Play(mustLoad(t, p, "one"))
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if _, err := p.Play(mustLoad(t, p, "two")); err != nil {
		t.Fatalf("Play: %v", err)
	}

	select {
	case res := <-first.Done:
		if res.Outcome != OutcomeSuperseded {
			t.Fatalf("first outcome = %s, want %s", res.Outcome, OutcomeSuperseded)
		}
	case <-time.After(time.Second):
		t.Fatal("superseded playback never resolved")
	}
}

func TestMockPlayerManualResolve(t *testing.T) {
	p := NewMockPlayer()
	p.Manual = true

	pb, err := p.Play(mustLoad(t, p, "bell"))
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !p.IsPlaying() {
		t.Fatal("manual playback should be active")
	}

	p.Pause()
	if !p.Paused() {
		t.Fatal("playback should be paused")
	}
	p.Resume()
	if p.Paused() {
		t.Fatal("playback should have resumed")
	}

	if !p.ResolveCurrent(Result{Outcome: OutcomeFailed, Err: errors.New("bad frame")}) {
		t.Fatal("ResolveCurrent found nothing to resolve")
	}
	res := <-pb.Done
	if res.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if p.IsPlaying() {
		t.Fatal("resolved playback still reported playing")
	}
	if p.ResolveCurrent(Result{Outcome: OutcomeCompleted}) {
		t.Fatal("ResolveCurrent should report nothing in flight")
	}
}

func TestMockPlayerStop(t *testing.T) {
	p := NewMockPlayer()
	p.Manual = true

	pb, err := p.Play(mustLoad(t, p, "hum"))
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	p.Stop()

	res := <-pb.Done
	if res.Outcome != OutcomeSuperseded {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeSuperseded)
	}
}

func TestMockPlayerRejectsReleasedUnit(t *testing.T) {
	p := NewMockPlayer()
	u := mustLoad(t, p, "gone")
	u.Release()
	if _, err := p.Play(u); !errors.Is(err, ErrUnitReleased) {
		t.Fatalf("Play(released) = %v, want ErrUnitReleased", err)
	}
}

func TestMockPlayerClose(t *testing.T) {
	p := NewMockPlayer()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := p.Play(mustLoad(t, p, "x")); !errors.Is(err, ErrPlayerClosed) {
		t.Fatalf("Play after close = %v, want ErrPlayerClosed", err)
	}
}
