package audio

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPlaybackResolvesOnce(t *testing.T) {
	pb := newPlayback()

	pb.resolve(Result{Outcome: OutcomeCompleted})
	pb.resolve(Result{Outcome: OutcomeFailed, Err: errors.New("late")})

	select {
	case res := <-pb.Done:
		if res.Outcome != OutcomeCompleted {
			t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeCompleted)
		}
	case <-time.After(time.Second):
		t.Fatal("Done never delivered")
	}

	// The second resolve must not have queued another result.
	select {
	case res := <-pb.Done:
		t.Fatalf("unexpected second result: %+v", res)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPlaybackConcurrentResolve(t *testing.T) {
	pb := newPlayback()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		outcome := OutcomeCompleted
		if i%2 == 1 {
			outcome = OutcomeSuperseded
		}
		wg.Add(1)
		go func(o Outcome) {
			defer wg.Done()
			pb.resolve(Result{Outcome: o})
		}(outcome)
	}
	wg.Wait()

	count := 0
	for {
		select {
		case <-pb.Done:
			count++
		case <-time.After(20 * time.Millisecond):
			if count != 1 {
				t.Fatalf("delivered %d results, want exactly 1", count)
			}
			return
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeCompleted, "completed"},
		{OutcomeFailed, "failed"},
		{OutcomeSuperseded, "superseded"},
		{Outcome(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}
