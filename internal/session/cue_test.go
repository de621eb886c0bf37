package session

import (
	"sync"
	"testing"
)

func TestDispatchTableClaimOnce(t *testing.T) {
	table := NewDispatchTable()

	if !table.Claim(30) {
		t.Fatal("first claim should succeed")
	}
	if table.Claim(30) {
		t.Fatal("second claim of the same offset should fail")
	}
	if got := table.State(30); got != DispatchClaimed {
		t.Fatalf("state = %s, want %s", got, DispatchClaimed)
	}
	if got := table.State(99); got != DispatchPending {
		t.Fatalf("unknown offset state = %s, want %s", got, DispatchPending)
	}
}

func TestDispatchTableConcurrentClaims(t *testing.T) {
	table := NewDispatchTable()

	const goroutines = 32
	wins := make(chan bool, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- table.Claim(7)
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("claims won = %d, want exactly 1", won)
	}
}

func TestDispatchTableLifecycle(t *testing.T) {
	table := NewDispatchTable()
	table.Claim(10)
	table.Set(10, DispatchQueued)
	table.Set(10, DispatchPlaying)
	table.Set(10, DispatchPlayed)
	if got := table.State(10); got != DispatchPlayed {
		t.Fatalf("state = %s, want %s", got, DispatchPlayed)
	}

	table.Claim(20)
	table.Set(20, DispatchFailed)

	counts := table.Counts()
	if counts[DispatchPlayed] != 1 || counts[DispatchFailed] != 1 {
		t.Fatalf("counts = %v", counts)
	}

	table.Reset()
	if got := table.State(10); got != DispatchPending {
		t.Fatalf("state after reset = %s, want %s", got, DispatchPending)
	}
	if !table.Claim(10) {
		t.Fatal("offset should be claimable again after reset")
	}
}

func TestDispatchTableSetPendingForgets(t *testing.T) {
	table := NewDispatchTable()
	table.Claim(5)
	table.Set(5, DispatchPending)
	if !table.Claim(5) {
		t.Fatal("setting an offset back to pending should make it claimable")
	}
}
