package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/term"

	"github.com/dgnsrekt/stillness/internal/audio"
	"github.com/dgnsrekt/stillness/internal/script"
	"github.com/dgnsrekt/stillness/internal/session"
)

// runner wires the session controller to the terminal: keypresses drive
// the lifecycle, controller callbacks drive the display, and an optional
// file watcher reloads the script on change.
type runner struct {
	ctrl       *session.Controller
	scriptPath string
	watch      bool

	keys     chan byte
	messages chan string
	states   chan session.State
	ticks    chan int
	progress chan int
	reloads  chan struct{}
}

func newRunner(cfg session.Config, gateway session.Gateway, cues []script.Cue, scriptPath string, watchScript bool) (*runner, error) {
	var player session.Player
	if dryRun {
		mp := audio.NewMockPlayer()
		mp.AutoDelay = 300 * time.Millisecond
		player = mp
	} else {
		player = audio.NewPlayer(audio.DefaultPlayerConfig())
	}

	ctrl, err := session.NewController(cfg, gateway, player)
	if err != nil {
		return nil, err
	}
	if err := ctrl.SetCues(cues); err != nil {
		return nil, err
	}

	r := &runner{
		ctrl:       ctrl,
		scriptPath: scriptPath,
		watch:      watchScript,
		keys:       make(chan byte, 8),
		messages:   make(chan string, 16),
		states:     make(chan session.State, 16),
		ticks:      make(chan int, 16),
		progress:   make(chan int, 16),
		reloads:    make(chan struct{}, 1),
	}
	ctrl.OnMessage(func(msg string) { r.messages <- msg })
	ctrl.OnStateChange(func(s session.State) { r.states <- s })
	ctrl.OnTick(func(sec int) { r.ticks <- sec })
	ctrl.OnPreloadProgress(func(p int) { r.progress <- p })
	return r, nil
}

func (r *runner) run() error {
	defer r.ctrl.Shutdown() //nolint:errcheck

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	if r.watch {
		stop, err := r.watchScript()
		if err != nil {
			return err
		}
		defer stop()
	}

	if r.ctrl.PreloadStatus() == session.PreloadIdle {
		r.ctrl.StartPreload()
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("unable to enter raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), oldState) //nolint:errcheck
		go r.readKeys()
		r.printHelp()
	} else {
		// No terminal to wait on; start immediately and play through.
		if err := r.ctrl.Start(); err != nil {
			return err
		}
	}

	for {
		select {
		case <-sig:
			r.println("")
			return nil

		case key := <-r.keys:
			done, err := r.handleKey(key)
			if err != nil {
				r.println(errorStyle.Render(err.Error()))
			}
			if done {
				return nil
			}

		case sec := <-r.ticks:
			r.renderStatus(sec)

		case msg := <-r.messages:
			r.println(errorStyle.Render(msg))

		case state := <-r.states:
			r.renderState(state)
			if state == session.StateCompleted && !interactive {
				return nil
			}

		case p := <-r.progress:
			if p == 100 {
				r.println(subtle("all cues preloaded"))
			}

		case <-r.reloads:
			if err := r.reloadScript(); err != nil {
				r.println(errorStyle.Render(err.Error()))
			}
		}
	}
}

func (r *runner) readKeys() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 1 {
			r.keys <- buf[0]
		}
	}
}

func (r *runner) handleKey(key byte) (done bool, err error) {
	switch key {
	case ' ':
		switch r.ctrl.State() {
		case session.StateRunning:
			return false, r.ctrl.Pause()
		case session.StateReady, session.StatePaused:
			return false, r.ctrl.Start()
		case session.StateCompleted:
			return false, errors.New("session complete; press r to restart")
		}
		return false, nil
	case 'r':
		if err := r.ctrl.Reset(); err != nil {
			return false, err
		}
		r.println(statusStyle.Render("reset to 00:00"))
		return false, nil
	case 'q', 3, 4: // q, ctrl-c, ctrl-d
		r.println("")
		return true, nil
	default:
		return false, nil
	}
}

// watchScript reloads the cue script when it changes on disk. The watch
// is on the directory: editors that write via rename would otherwise
// orphan a watch on the old inode.
func (r *runner) watchScript() (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to watch script: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.scriptPath)); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, fmt.Errorf("unable to watch script directory: %w", err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != r.scriptPath {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case r.reloads <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Script watcher error", "error", err)
			}
		}
	}()
	return func() { watcher.Close() }, nil //nolint:errcheck
}

func (r *runner) reloadScript() error {
	cues, err := script.ParseFile(r.scriptPath)
	if err != nil {
		return fmt.Errorf("script reload failed, keeping current cues: %w", err)
	}
	if len(cues) == 0 {
		return errors.New("script reload produced no cues, keeping current cues")
	}
	if err := r.ctrl.SetCues(cues); err != nil {
		return err
	}
	r.ctrl.StartPreload()
	r.println(statusStyle.Render(fmt.Sprintf("script reloaded: %d cues", len(cues))))
	return nil
}

func (r *runner) renderStatus(sec int) {
	status := fmt.Sprintf("%s %s / %s",
		statusStyle.Render("▸"),
		formatClock(sec),
		subtle(formatClock(r.ctrl.Duration())))
	fmt.Fprintf(os.Stdout, "\r\033[K%s", status)
}

func (r *runner) renderState(state session.State) {
	switch state {
	case session.StateRunning:
		r.println(statusStyle.Render("session running"))
	case session.StatePaused:
		r.println(subtle(fmt.Sprintf("paused at %s", formatClock(r.ctrl.Seconds()))))
	case session.StateCompleted:
		r.println(statusStyle.Render("session complete") + subtle("  press r to restart, q to quit"))
	}
}

func (r *runner) printHelp() {
	r.println(subtle("space: start/pause   r: reset   q: quit"))
}

// println writes a line that behaves in raw terminal mode, clearing any
// status line first.
func (r *runner) println(s string) {
	fmt.Fprintf(os.Stdout, "\r\033[K%s\r\n", s)
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
