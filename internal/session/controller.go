// Package session implements the cue-scheduling and audio-playback core
// for a timed meditation session: a clock-driven scheduler that claims
// each due cue exactly once, a FIFO playback queue drained serially
// through a single-slot audio player, an optional bulk-preload phase, and
// the pause/resume/reset lifecycle supervising all of it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/stillness/internal/audio"
	"github.com/dgnsrekt/stillness/internal/script"
	"github.com/dgnsrekt/stillness/internal/synth"
)

// resolvedCue is a dequeued cue whose audio has been resolved and is
// ready to play. Units from the preload cache are shared across runs and
// must not be released here; transient live-synthesized units are
// released once their playback ends.
type resolvedCue struct {
	cue       script.Cue
	unit      *audio.Unit
	fromCache bool
}

// Controller owns the session lifecycle and the queue-draining state
// machine. All mutable state is guarded by one mutex; asynchronous
// completions (synthesis fetches, playback outcomes) re-enter through it
// and are epoch-checked so results from a discarded run are never applied
// to a cleared session.
type Controller struct {
	cfg     Config
	voice   synth.Voice
	gateway Gateway
	player  Player

	mu       sync.Mutex
	machine  *StateMachine
	clock    *Clock
	dispatch *DispatchTable
	queue    *PlaybackQueue
	sched    *Scheduler
	preload  *PreloadManager
	events   *EventLog

	cues    []script.Cue
	epoch   uint64
	loading bool
	playing bool
	pending *resolvedCue // Resolved while paused; played on resume
	current *resolvedCue

	lastPlayed  int
	lastMessage string
	isShutdown  bool

	ctx    context.Context
	cancel context.CancelFunc

	// Callbacks run in their own goroutines and must not assume
	// ordering relative to controller state.
	onStateChange func(State)
	onMessage     func(string)
	onTick        func(second int)
}

// NewController creates a controller for the given collaborators. No
// clock runs and no audio resources are touched until Start.
func NewController(cfg Config, gateway Gateway, player Player) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gateway == nil {
		return nil, errors.New("session: gateway is required")
	}
	if player == nil {
		return nil, errors.New("session: player is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:        cfg,
		voice:      synth.Voice(cfg.Voice),
		gateway:    gateway,
		player:     player,
		machine:    NewStateMachine(),
		dispatch:   NewDispatchTable(),
		queue:      NewPlaybackQueue(),
		preload:    NewPreloadManager(),
		events:     NewEventLog(cfg.EventLogSize),
		lastPlayed: -1,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.sched = NewScheduler(c.dispatch, c.queue)
	c.clock = NewClock(cfg.DurationSeconds, cfg.TickInterval, c.handleTick, c.handleComplete)
	return c, nil
}

// SetCues replaces the cue set wholesale. Offsets are no longer
// guaranteed stable, so all dispatch state, the queue, and the preload
// cache are discarded and the clock returns to zero. Duplicate offsets
// are rejected: offset is cue identity.
func (c *Controller) SetCues(cues []script.Cue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isShutdown {
		return ErrShutdown
	}

	seen := make(map[int]bool, len(cues))
	for _, cue := range cues {
		if seen[cue.OffsetSeconds] {
			return fmt.Errorf("session: duplicate cue offset %d", cue.OffsetSeconds)
		}
		seen[cue.OffsetSeconds] = true
	}

	c.discardRunLocked()
	c.preload.ReleaseAll()
	c.cues = append([]script.Cue(nil), cues...)
	c.sched.SetCues(c.cues)

	if len(c.cues) == 0 {
		c.machine.Transition(StateIdle)
	} else {
		c.machine.Transition(StateReady)
	}
	c.events.Record(EventLifecycle, "cue set replaced: %d cues", len(c.cues))
	c.notifyState(c.machine.Current())
	return nil
}

// Start begins or resumes the session. On the transition from not-running
// to running it attempts to unlock audio output (best effort) and resumes
// any paused playback unit. A completed session must be reset first.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isShutdown {
		return ErrShutdown
	}
	if len(c.cues) == 0 {
		return ErrNoCues
	}

	state := c.machine.Current()
	if state == StateRunning {
		return nil
	}
	if !state.CanStart() {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, state)
	}
	c.machine.Transition(StateRunning)

	if !c.player.Unlocked() {
		if err := c.player.Unlock(); err != nil {
			// Stay running: individual playback attempts will surface
			// the locked device with its remedy.
			c.events.Record(EventAudioLocked, "unlock failed: %v", err)
			log.Warn("Audio unlock failed", "error", err)
		}
	}
	c.player.Resume()
	c.clock.Start()

	// Dispatch the current second so a cue at offset zero fires on a
	// fresh start; the claim set makes this idempotent on resume.
	c.dispatchLocked(c.clock.Seconds())
	c.tryAdvanceLocked()

	c.events.Record(EventLifecycle, "session running at %ds", c.clock.Seconds())
	c.notifyState(StateRunning)
	return nil
}

// Pause freezes the clock and suspends any in-flight playback without
// discarding it. Queue and dispatch state are preserved, so resuming
// continues the same cue sequence.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isShutdown {
		return ErrShutdown
	}
	if !c.machine.Current().CanPause() {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidState, c.machine.Current())
	}

	c.clock.Pause()
	c.player.Pause()
	c.machine.Transition(StatePaused)
	c.events.Record(EventLifecycle, "session paused at %ds", c.clock.Seconds())
	c.notifyState(StatePaused)
	return nil
}

// Reset returns the clock to zero and all dispatch state to pending,
// discarding the queue and the active playback unit. The preload cache is
// kept: it is expensive to rebuild and remains valid for the same cues.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isShutdown {
		return ErrShutdown
	}
	if !c.machine.Current().CanReset() {
		return fmt.Errorf("%w: cannot reset from %s", ErrInvalidState, c.machine.Current())
	}

	c.discardRunLocked()
	c.machine.Transition(StateReady)
	c.events.Record(EventLifecycle, "session reset")
	c.notifyState(StateReady)
	return nil
}

// Shutdown tears down the session completely: clock stopped, playback
// released, every cached unit freed, queue and dispatch state cleared,
// audio device closed. The controller cannot be reused.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isShutdown {
		return nil
	}
	c.isShutdown = true
	c.cancel()

	c.discardRunLocked()
	c.preload.ReleaseAll()
	err := c.player.Close()
	c.machine.Transition(StateIdle)
	c.events.Record(EventLifecycle, "session shut down")
	c.notifyState(StateIdle)
	return err
}

// StartPreload kicks off the bulk-preload phase in the background when
// preloading is enabled and cues are present. Repeat calls while a
// preload is loading or complete are no-ops.
func (c *Controller) StartPreload() {
	c.mu.Lock()
	if c.isShutdown || !c.cfg.PreloadEnabled || len(c.cues) == 0 {
		c.mu.Unlock()
		return
	}
	cues := append([]script.Cue(nil), c.cues...)
	c.mu.Unlock()

	go func() {
		err := c.preload.Run(c.ctx, c.gateway, c.player, cues, c.voice)
		if err != nil && !errors.Is(err, ErrPreloadActive) {
			c.mu.Lock()
			c.lastMessage = "preload failed; cues will be synthesized live"
			c.events.Record(EventPreload, "batch preload failed: %v", err)
			msg := c.lastMessage
			c.mu.Unlock()
			log.Warn("Preload failed", "error", err)
			c.notifyMessage(msg)
			return
		}
		if err == nil {
			resolved, failed := c.preload.Counts()
			c.mu.Lock()
			c.events.Record(EventPreload, "preload finished: %d cached, %d fell back", resolved, failed)
			c.mu.Unlock()
		}
	}()
}

// handleTick runs once per clock second: claim the due cue, if any, then
// give the drainer a chance to advance.
func (c *Controller) handleTick(second int) {
	c.mu.Lock()
	if c.isShutdown || c.machine.Current() != StateRunning {
		// A tick that raced a pause or reset; the clock is already
		// stopping and no new claims may occur.
		c.mu.Unlock()
		return
	}
	c.dispatchLocked(second)
	c.tryAdvanceLocked()
	cb := c.onTick
	c.mu.Unlock()

	if cb != nil {
		go cb(second)
	}
}

// handleComplete fires when the clock reaches the configured duration.
// Completion is an implicit pause, not a reset: dispatch state is kept
// and any playing audio is allowed to finish.
func (c *Controller) handleComplete() {
	c.mu.Lock()
	if c.isShutdown || c.machine.Current() != StateRunning {
		c.mu.Unlock()
		return
	}
	c.machine.Transition(StateCompleted)
	c.lastMessage = "session complete"
	c.events.Record(EventLifecycle, "session completed at %ds", c.clock.Seconds())
	c.notifyState(StateCompleted)
	msg := c.lastMessage
	c.mu.Unlock()

	c.notifyMessage(msg)
}

// dispatchLocked claims the cue due at the given second. Caller holds
// c.mu.
func (c *Controller) dispatchLocked(second int) {
	cue, claimed := c.sched.Dispatch(second)
	if !claimed {
		return
	}
	c.events.Record(EventClaim, "cue %d claimed: %.40q", cue.OffsetSeconds, cue.Text)
	log.Debug("Cue claimed", "offset", cue.OffsetSeconds, "queue", c.queue.Len())
}

// tryAdvanceLocked is the single re-entrant drain step. It is invoked
// after every relevant state change and is an idempotent no-op unless all
// preconditions hold: session running, nothing playing, nothing loading,
// queue (or pending slot) non-empty. Caller holds c.mu.
func (c *Controller) tryAdvanceLocked() {
	if c.isShutdown || c.machine.Current() != StateRunning || c.playing || c.loading {
		return
	}

	if c.pending != nil {
		r := c.pending
		c.pending = nil
		c.startPlaybackLocked(r)
		return
	}

	cue, ok := c.queue.Dequeue()
	if !ok {
		return
	}
	c.loading = true
	go c.resolveAndPlay(cue, c.epoch)
}

// resolveAndPlay fetches the cue's audio (cache hit or live synthesis)
// off the lock, then re-enters the controller to start playback. Results
// belonging to a discarded epoch are dropped, not applied.
func (c *Controller) resolveAndPlay(cue script.Cue, epoch uint64) {
	unit, fromCache, err := c.resolveUnit(cue)

	c.mu.Lock()
	if c.epoch != epoch || c.isShutdown {
		c.events.Record(EventStale, "discarded stale result for cue %d", cue.OffsetSeconds)
		c.mu.Unlock()
		if unit != nil && !fromCache {
			unit.Release()
		}
		return
	}
	c.loading = false

	if err != nil {
		c.markFailedLocked(cue, err)
		msg := c.lastMessage
		c.mu.Unlock()
		c.notifyMessage(msg)
		return
	}

	r := &resolvedCue{cue: cue, unit: unit, fromCache: fromCache}
	if c.machine.Current() != StateRunning {
		// Paused (or completed) while the fetch was in flight. The
		// result is kept and played when the session resumes.
		c.pending = r
		c.mu.Unlock()
		return
	}

	c.startPlaybackLocked(r)
	msg := c.lastMessage
	c.mu.Unlock()
	if msg != "" {
		c.notifyMessage(msg)
	}
}

// resolveUnit produces a playable unit for the cue: straight from the
// preload cache when present (no synthesis call), otherwise one live
// gateway fetch, optionally retried once per the configured policy.
func (c *Controller) resolveUnit(cue script.Cue) (*audio.Unit, bool, *SessionError) {
	if unit, ok := c.preload.Lookup(cue.OffsetSeconds); ok {
		log.Debug("Preload cache hit", "offset", cue.OffsetSeconds)
		return unit, true, nil
	}

	data, err := c.gateway.SynthesizeOne(c.ctx, cue.Text, c.voice)
	if err != nil && c.cfg.RetryOnFailure {
		log.Debug("Synthesis failed, retrying once", "offset", cue.OffsetSeconds, "error", err)
		select {
		case <-time.After(c.cfg.RetryDelay):
		case <-c.ctx.Done():
			return nil, false, newError(c.ctx.Err(), KindSynthesis, cue.OffsetSeconds)
		}
		data, err = c.gateway.SynthesizeOne(c.ctx, cue.Text, c.voice)
	}
	if err != nil {
		return nil, false, newError(err, KindSynthesis, cue.OffsetSeconds)
	}

	unit, err := c.player.Load(data)
	if err != nil {
		return nil, false, newError(err, KindPlayback, cue.OffsetSeconds)
	}
	return unit, false, nil
}

// startPlaybackLocked plays a resolved cue and watches for its outcome.
// Caller holds c.mu.
func (c *Controller) startPlaybackLocked(r *resolvedCue) {
	pb, err := c.player.Play(r.unit)
	if err != nil {
		if !r.fromCache {
			r.unit.Release()
		}
		c.markFailedLocked(r.cue, newError(err, KindPlayback, r.cue.OffsetSeconds))
		return
	}

	c.playing = true
	c.current = r
	c.dispatch.Set(r.cue.OffsetSeconds, DispatchPlaying)
	c.events.Record(EventPlayStart, "cue %d playing", r.cue.OffsetSeconds)
	log.Debug("Playback started", "offset", r.cue.OffsetSeconds, "cached", r.fromCache)

	go c.watchPlayback(pb, r, c.epoch)
}

// watchPlayback waits for a playback attempt's terminal outcome and
// re-enters the drain loop.
func (c *Controller) watchPlayback(pb *audio.Playback, r *resolvedCue, epoch uint64) {
	result := <-pb.Done

	c.mu.Lock()
	if c.epoch != epoch || c.isShutdown {
		c.mu.Unlock()
		if !r.fromCache {
			r.unit.Release()
		}
		return
	}

	var msg string
	switch result.Outcome {
	case audio.OutcomeCompleted:
		c.playing = false
		c.current = nil
		c.dispatch.Set(r.cue.OffsetSeconds, DispatchPlayed)
		c.lastPlayed = r.cue.OffsetSeconds
		if !r.fromCache {
			r.unit.Release()
		}
		c.events.Record(EventPlayEnd, "cue %d played", r.cue.OffsetSeconds)
		log.Debug("Playback completed", "offset", r.cue.OffsetSeconds)
		c.tryAdvanceLocked()

	case audio.OutcomeFailed:
		c.playing = false
		c.current = nil
		if !r.fromCache {
			r.unit.Release()
		}
		c.markFailedLocked(r.cue, newError(result.Err, KindPlayback, r.cue.OffsetSeconds))
		msg = c.lastMessage

	case audio.OutcomeSuperseded:
		// The displacing actor (reset, shutdown, or a newer play) owns
		// the state; nothing to apply here.
		if c.current == r {
			c.playing = false
			c.current = nil
		}
		c.events.Record(EventStale, "cue %d playback superseded", r.cue.OffsetSeconds)
	}
	c.mu.Unlock()

	if msg != "" {
		c.notifyMessage(msg)
	}
}

// markFailedLocked records a per-cue failure and keeps the queue moving.
// Failed cues are not retried within the run; the next queued cue is
// attempted immediately. Caller holds c.mu.
func (c *Controller) markFailedLocked(cue script.Cue, serr *SessionError) {
	c.dispatch.Set(cue.OffsetSeconds, DispatchFailed)
	c.loading = false

	if errors.Is(serr, audio.ErrAudioLocked) {
		// Distinguished from generic failures: the remedy is user
		// interaction, not a different cue.
		c.lastMessage = "audio output is locked; interact with the app, then pause and resume"
		c.events.Record(EventAudioLocked, "cue %d blocked: audio locked", cue.OffsetSeconds)
	} else {
		c.lastMessage = fmt.Sprintf("cue at %ds failed: %v", cue.OffsetSeconds, serr.Err)
		kind := EventPlayError
		if serr.Kind == KindSynthesis {
			kind = EventSynthError
		}
		c.events.Record(kind, "cue %d failed: %v", cue.OffsetSeconds, serr.Err)
	}
	log.Warn("Cue failed", "offset", cue.OffsetSeconds, "kind", serr.Kind, "error", serr.Err)

	c.tryAdvanceLocked()
}

// discardRunLocked unwinds the current run: clock to zero, queue and
// dispatch state cleared, in-flight results invalidated, playback
// released. The preload cache is left to the caller. Caller holds c.mu.
func (c *Controller) discardRunLocked() {
	c.clock.Reset()
	c.queue.Clear()
	c.dispatch.Reset()
	c.epoch++
	c.loading = false
	c.playing = false
	c.lastPlayed = -1

	c.player.Stop()
	if c.current != nil {
		if !c.current.fromCache {
			c.current.unit.Release()
		}
		c.current = nil
	}
	if c.pending != nil {
		if !c.pending.fromCache {
			c.pending.unit.Release()
		}
		c.pending = nil
	}
}

// Callback registration. Callbacks are invoked on their own goroutines.

// OnStateChange registers a callback for lifecycle state changes.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = fn
}

// OnMessage registers a callback for user-visible messages.
func (c *Controller) OnMessage(fn func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

// OnTick registers a callback fired once per session second.
func (c *Controller) OnTick(fn func(second int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTick = fn
}

func (c *Controller) notifyState(state State) {
	if fn := c.onStateChange; fn != nil {
		go fn(state)
	}
}

func (c *Controller) notifyMessage(msg string) {
	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()
	if fn != nil {
		go fn(msg)
	}
}

// Accessors.

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// Seconds returns the session clock's current second.
func (c *Controller) Seconds() int {
	return c.clock.Seconds()
}

// Duration returns the configured session duration in seconds.
func (c *Controller) Duration() int {
	return c.clock.Duration()
}

// SetDuration changes the session bound mid-run. Shortening it below the
// current second completes the session; cues beyond the new bound never
// fire, with no backfill if it is raised again.
func (c *Controller) SetDuration(seconds int) {
	c.mu.Lock()
	wasRunning := c.machine.Current() == StateRunning
	c.clock.SetDuration(seconds)
	completed := wasRunning && seconds > 0 && c.clock.Seconds() >= seconds
	if completed {
		c.machine.Transition(StateCompleted)
		c.lastMessage = "session complete"
		c.events.Record(EventLifecycle, "duration shortened to %ds; session completed", seconds)
		c.notifyState(StateCompleted)
	}
	c.mu.Unlock()
}

// LastPlayed returns the offset of the most recently completed cue, or
// -1 when none has completed this run.
func (c *Controller) LastPlayed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPlayed
}

// LastMessage returns the most recent user-visible message.
func (c *Controller) LastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMessage
}

// DispatchStateOf returns the dispatch state of the cue at the offset.
func (c *Controller) DispatchStateOf(offset int) DispatchState {
	return c.dispatch.State(offset)
}

// QueueStats returns playback queue statistics.
func (c *Controller) QueueStats() QueueStats {
	return c.queue.Stats()
}

// QueueLen returns the number of queued cues.
func (c *Controller) QueueLen() int {
	return c.queue.Len()
}

// PreloadStatus returns the preload phase status.
func (c *Controller) PreloadStatus() PreloadStatus {
	return c.preload.Status()
}

// PreloadProgress returns the rounded preload completion percentage.
func (c *Controller) PreloadProgress() int {
	return c.preload.Progress()
}

// OnPreloadProgress registers a callback for preload progress updates.
func (c *Controller) OnPreloadProgress(fn func(percent int)) {
	c.preload.OnProgress(fn)
}

// Events returns a copy of the rolling diagnostic log, oldest first.
func (c *Controller) Events() []Event {
	return c.events.Recent()
}

// Cues returns a copy of the current cue set.
func (c *Controller) Cues() []script.Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]script.Cue(nil), c.cues...)
}
