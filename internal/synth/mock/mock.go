// Package mock provides a scriptable in-memory synthesis gateway for
// tests. It implements the same operations as synth.Client without any
// network access.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/stillness/internal/synth"
)

// Gateway is a fake synthesis gateway. The zero value is not usable; use
// New.
type Gateway struct {
	mu sync.Mutex

	// Simulated behavior
	delay         time.Duration
	failAll       error
	failTexts     map[string]error
	batchErr      error
	batchFailures map[int]string

	// Recorded calls
	oneCalls   []string
	oneVoices  []synth.Voice
	batchCalls int
}

// New creates a mock gateway that succeeds for every call.
func New() *Gateway {
	return &Gateway{
		failTexts:     make(map[string]error),
		batchFailures: make(map[int]string),
	}
}

// SetDelay makes every call sleep before responding.
func (g *Gateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

// FailAll makes every SynthesizeOne call fail with err.
func (g *Gateway) FailAll(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAll = err
}

// FailText makes SynthesizeOne fail with err for one exact text.
func (g *Gateway) FailText(text string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failTexts[text] = err
}

// FailBatch makes SynthesizeBatch fail entirely with err.
func (g *Gateway) FailBatch(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batchErr = err
}

// FailBatchSegment marks one offset as a per-segment failure inside an
// otherwise successful batch response.
func (g *Gateway) FailBatchSegment(offset int, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batchFailures[offset] = reason
}

// SynthesizeOne returns deterministic fake audio bytes derived from the
// text, or a scripted failure.
func (g *Gateway) SynthesizeOne(ctx context.Context, text string, voice synth.Voice) ([]byte, error) {
	g.mu.Lock()
	delay := g.delay
	err := g.failAll
	if err == nil {
		err = g.failTexts[text]
	}
	g.oneCalls = append(g.oneCalls, text)
	g.oneVoices = append(g.oneVoices, voice)
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return FakeAudio(text), nil
}

// SynthesizeBatch returns one result per segment, honoring scripted
// per-segment and whole-batch failures.
func (g *Gateway) SynthesizeBatch(ctx context.Context, segments []synth.Segment, voice synth.Voice) ([]synth.BatchResult, error) {
	g.mu.Lock()
	g.batchCalls++
	delay := g.delay
	batchErr := g.batchErr
	failures := make(map[int]string, len(g.batchFailures))
	for k, v := range g.batchFailures {
		failures[k] = v
	}
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if batchErr != nil {
		return nil, batchErr
	}

	results := make([]synth.BatchResult, 0, len(segments))
	for _, seg := range segments {
		if reason, ok := failures[seg.Offset]; ok {
			results = append(results, synth.BatchResult{
				Offset:      seg.Offset,
				Success:     false,
				ErrorReason: reason,
			})
			continue
		}
		results = append(results, synth.BatchResult{
			Offset:  seg.Offset,
			Audio:   FakeAudio(seg.Text),
			Success: true,
		})
	}
	return results, nil
}

// OneCalls returns the texts passed to SynthesizeOne, in call order.
func (g *Gateway) OneCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.oneCalls))
	copy(out, g.oneCalls)
	return out
}

// BatchCalls returns how many times SynthesizeBatch was invoked.
func (g *Gateway) BatchCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.batchCalls
}

// FakeAudio builds a recognizable fake payload for a text.
func FakeAudio(text string) []byte {
	return []byte(fmt.Sprintf("mpeg:%s", text))
}
