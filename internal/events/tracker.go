package events

import (
	"sync"
	"time"
)

// Status is what a Tracker has seen so far.
type Status struct {
	// Ready is set once the first scan has finished, whatever its outcome.
	Ready    bool
	Phase    Phase
	Progress Progress
	Started  time.Time
	Finished time.Time
	// LastError is the fatal error of the last finished scan, if any.
	LastError string
}

// Tracker keeps the latest progress of a scan for readers on other
// goroutines, such as the health endpoints. Feed it from the event handler.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

// NewTracker returns a tracker in the walking phase.
func NewTracker() *Tracker {
	return &Tracker{status: Status{Phase: PhaseWalking, Started: time.Now()}}
}

// Observe records progress and finished events; other kinds are ignored.
func (t *Tracker) Observe(ev Event) {
	if ev.Kind != KindProgress && ev.Kind != KindFinished {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Progress = ev.Progress
	t.status.Phase = ev.Progress.Phase
	if ev.Kind != KindFinished {
		return
	}
	t.status.Ready = true
	t.status.Finished = time.Now()
	t.status.LastError = ""
	if ev.Err != nil {
		t.status.LastError = ev.Err.Error()
	}
}

// SetPhase changes the phase without touching the counters.
func (t *Tracker) SetPhase(p Phase) {
	t.mu.Lock()
	t.status.Phase = p
	t.mu.Unlock()
}

// Status returns a snapshot.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
