package pomodoro

import (
	"errors"
	"sync"
	"time"

	"zenfocus/backend/internal/derive"
)

const (
	DefaultMinutes  = 25
	MaxMinutes      = 180
	CompleteMessage = "Focus session complete! Take a break."
)

var ErrInvalidDuration = errors.New("focus length must be between 1 and 180 minutes")

// State is what the dashboard shows for the timer. Shield is on while a
// session is running.
type State struct {
	Remaining int    `json:"remaining_seconds"`
	Display   string `json:"display"`
	Running   bool   `json:"running"`
	Shield    bool   `json:"focus_shield"`
}

type Options struct {
	Interval   time.Duration
	OnTick     func(State)
	OnComplete func(message string)
}

// Timer runs at most one countdown. Starting again cancels the previous
// tick before the new one begins.
type Timer struct {
	interval   time.Duration
	onTick     func(State)
	onComplete func(string)

	mu        sync.Mutex
	remaining int
	running   bool
	gen       uint64
	stop      chan struct{}
}

func NewTimer(opts Options) *Timer {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Timer{
		interval:   opts.Interval,
		onTick:     opts.OnTick,
		onComplete: opts.OnComplete,
		remaining:  DefaultMinutes * 60,
	}
}

func (t *Timer) Start(minutes int) error {
	if minutes < 1 || minutes > MaxMinutes {
		return ErrInvalidDuration
	}

	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	gen := t.gen
	stop := make(chan struct{})
	t.stop = stop
	t.remaining = minutes * 60
	t.running = true
	state := t.stateLocked()
	t.mu.Unlock()

	t.publish(state)
	go t.run(gen, stop)
	return nil
}

// Reset stops any countdown and shows the default session length.
func (t *Timer) Reset() {
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	t.remaining = DefaultMinutes * 60
	t.running = false
	state := t.stateLocked()
	t.mu.Unlock()

	t.publish(state)
}

// Stop cancels the countdown without publishing.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	t.running = false
	t.mu.Unlock()
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) Display() string {
	return t.State().Display
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) stateLocked() State {
	return State{
		Remaining: t.remaining,
		Display:   derive.FormatClock(t.remaining),
		Running:   t.running,
		Shield:    t.running,
	}
}

func (t *Timer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.remaining--
		done := t.remaining <= 0
		if done {
			t.remaining = 0
			t.running = false
			t.stop = nil
		}
		state := t.stateLocked()
		t.mu.Unlock()

		t.publish(state)
		if done {
			if t.onComplete != nil {
				t.onComplete(CompleteMessage)
			}
			return
		}
	}
}

func (t *Timer) publish(s State) {
	if t.onTick != nil {
		t.onTick(s)
	}
}
