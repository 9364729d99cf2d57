// Package events carries scan results from the goroutine that produces them
// to the caller that consumes them.
//
// A producer pushes events onto a Queue; the consumer drains it with
// ProcessPending, which runs the handler on the consumer's goroutine. Notify
// returns a channel that is signalled whenever new events arrive, so a
// consumer can select on it together with its own shutdown signal.
package events

import (
	"sync"
	"time"

	"media-scanner/internal/media"
)

// Kind identifies the payload of an Event.
type Kind int

const (
	// KindResult carries the scan result of one file.
	KindResult Kind = iota
	// KindError reports a file that could not be scanned.
	KindError
	// KindProgress is emitted periodically while a scan runs.
	KindProgress
	// KindFinished is the last event of a scan.
	KindFinished
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindProgress:
		return "progress"
	case KindFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Phase describes what a scan is doing when it reports progress.
type Phase string

const (
	PhaseWalking  Phase = "walking"
	PhaseWatching Phase = "watching"
	PhaseDone     Phase = "done"
	PhaseAborted  Phase = "aborted"
	PhaseFailed   Phase = "failed"
)

// Progress is a snapshot of a running scan.
type Progress struct {
	Phase   Phase         `json:"phase"`
	Root    string        `json:"root,omitempty"`
	Path    string        `json:"path,omitempty"`
	Done    int64         `json:"done"`
	Errors  int64         `json:"errors"`
	Skipped int64         `json:"skipped"`
	Elapsed time.Duration `json:"elapsed"`
	// Rate is files per second since the scan started.
	Rate float64 `json:"rate"`
}

// Event is one item on the queue. Exactly one of Result and Err is set for
// KindResult and KindError events.
type Event struct {
	Kind     Kind
	Path     string
	Result   *media.Result
	Err      error
	Progress Progress
}

// Handler consumes events.
type Handler func(Event)

// Queue is an unbounded FIFO safe for one or more producers and one consumer.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
	pushed int64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends ev and wakes the consumer. Ownership of ev.Result moves to the
// queue; the producer must not touch it afterwards.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.pushed++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// ProcessPending removes every queued event and runs h on each in order. It
// returns the number of events handled. Events pushed by h itself are left
// for the next call.
func (q *Queue) ProcessPending(h Handler) int {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for i := range items {
		h(items[i])
		items[i] = Event{}
	}
	return len(items)
}

// Notify returns a channel that receives a value after events are pushed.
// Several pushes may collapse into one signal.
func (q *Queue) Notify() <-chan struct{} { return q.notify }

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pushed returns the number of events pushed since the queue was created.
func (q *Queue) Pushed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}
