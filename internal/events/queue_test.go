package events

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Push(Event{Kind: KindResult, Path: fmt.Sprintf("file%d", i)})
	}

	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}

	var got []string
	n := q.ProcessPending(func(ev Event) {
		got = append(got, ev.Path)
	})
	if n != 5 {
		t.Errorf("ProcessPending() = %d, want 5", n)
	}
	for i, p := range got {
		if want := fmt.Sprintf("file%d", i); p != want {
			t.Errorf("event %d path = %q, want %q", i, p, want)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", q.Len())
	}
	if n := q.ProcessPending(func(Event) { t.Error("handler called on empty queue") }); n != 0 {
		t.Errorf("ProcessPending() on empty queue = %d, want 0", n)
	}
}

func TestQueuePushFromHandler(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Kind: KindResult, Path: "a"})

	n := q.ProcessPending(func(ev Event) {
		q.Push(Event{Kind: KindResult, Path: ev.Path + "-again"})
	})
	if n != 1 {
		t.Fatalf("first ProcessPending() = %d, want 1", n)
	}

	var paths []string
	q.ProcessPending(func(ev Event) { paths = append(paths, ev.Path) })
	if len(paths) != 1 || paths[0] != "a-again" {
		t.Errorf("second drain = %v, want [a-again]", paths)
	}
}

func TestQueueNotify(t *testing.T) {
	q := NewQueue()

	select {
	case <-q.Notify():
		t.Fatal("notify signalled before any push")
	default:
	}

	q.Push(Event{Kind: KindProgress})
	q.Push(Event{Kind: KindProgress})

	select {
	case <-q.Notify():
	case <-time.After(time.Second):
		t.Fatal("notify not signalled after push")
	}

	// Two pushes collapse into one signal.
	select {
	case <-q.Notify():
		t.Error("expected a single coalesced signal")
	default:
	}

	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()

	const producers = 4
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(Event{Kind: KindResult, Path: fmt.Sprintf("%d/%d", p, i)})
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Per producer order must survive the interleaving.
	last := make(map[string]int)
	total := 0
	consume := func(ev Event) {
		var p, i int
		if _, err := fmt.Sscanf(ev.Path, "%d/%d", &p, &i); err != nil {
			t.Errorf("bad path %q: %v", ev.Path, err)
			return
		}
		key := fmt.Sprint(p)
		if prev, ok := last[key]; ok && i != prev+1 {
			t.Errorf("producer %d: event %d after %d", p, i, prev)
		}
		last[key] = i
		total++
	}

	for {
		select {
		case <-q.Notify():
			q.ProcessPending(consume)
			continue
		case <-done:
		}
		break
	}
	q.ProcessPending(consume)

	if total != producers*perProducer {
		t.Errorf("consumed %d events, want %d", total, producers*perProducer)
	}
	if q.Pushed() != producers*perProducer {
		t.Errorf("Pushed() = %d, want %d", q.Pushed(), producers*perProducer)
	}
}

func TestEventPayloads(t *testing.T) {
	q := NewQueue()
	errBad := errors.New("bad file")
	q.Push(Event{Kind: KindError, Path: "x.bmp", Err: errBad})
	q.Push(Event{Kind: KindFinished, Progress: Progress{Phase: PhaseDone, Done: 3}})

	var kinds []Kind
	q.ProcessPending(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		switch ev.Kind {
		case KindError:
			if !errors.Is(ev.Err, errBad) {
				t.Errorf("error event carries %v", ev.Err)
			}
			if ev.Result != nil {
				t.Error("error event must not carry a result")
			}
		case KindFinished:
			if ev.Progress.Phase != PhaseDone || ev.Progress.Done != 3 {
				t.Errorf("finished progress = %+v", ev.Progress)
			}
		}
	})
	if len(kinds) != 2 || kinds[0] != KindError || kinds[1] != KindFinished {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindResult, "result"},
		{KindError, "error"},
		{KindProgress, "progress"},
		{KindFinished, "finished"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
