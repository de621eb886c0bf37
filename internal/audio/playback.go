package audio

import "sync"

// Outcome is the terminal result of a playback attempt. Every started
// playback resolves to exactly one outcome.
type Outcome int

const (
	// OutcomeCompleted means the unit played to its end.
	OutcomeCompleted Outcome = iota
	// OutcomeFailed means the device reported an error mid-playback.
	OutcomeFailed
	// OutcomeSuperseded means a newer playback (or a stop) displaced this
	// one before it finished.
	OutcomeSuperseded
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Result carries a playback's terminal outcome and, for failures, the
// device error.
type Result struct {
	Outcome Outcome
	Err     error
}

// Playback tracks one in-flight playback attempt. Done receives exactly
// one Result and is never closed without one.
type Playback struct {
	Done <-chan Result

	done chan Result
	once sync.Once
}

func newPlayback() *Playback {
	ch := make(chan Result, 1)
	return &Playback{Done: ch, done: ch}
}

// resolve delivers the terminal result. Later calls are ignored, so a
// supersede racing a natural completion yields a single winner.
func (p *Playback) resolve(r Result) {
	p.once.Do(func() {
		p.done <- r
	})
}
