package processor

import "sync"

// Barrier joins the flight and crew pipelines. Each side marks itself done
// at most once; the callback fires once, when the second side arrives.
type Barrier struct {
	mu         sync.Mutex
	flightDone bool
	crewDone   bool
	fired      bool
	onComplete func()
	done       chan struct{}
}

// NewBarrier creates a barrier. onComplete may be nil.
func NewBarrier(onComplete func()) *Barrier {
	return &Barrier{onComplete: onComplete, done: make(chan struct{})}
}

// MarkFlightDone records flight completion. It reports whether this call
// changed the flag.
func (b *Barrier) MarkFlightDone() bool { return b.mark(&b.flightDone) }

// MarkCrewDone records crew completion. It reports whether this call
// changed the flag.
func (b *Barrier) MarkCrewDone() bool { return b.mark(&b.crewDone) }

func (b *Barrier) mark(flag *bool) bool {
	b.mu.Lock()
	if *flag {
		b.mu.Unlock()
		return false
	}
	*flag = true
	fire := b.flightDone && b.crewDone && !b.fired
	if fire {
		b.fired = true
	}
	b.mu.Unlock()

	if fire {
		if b.onComplete != nil {
			b.onComplete()
		}
		close(b.done)
	}
	return true
}

// Done is closed after the completion callback has returned.
func (b *Barrier) Done() <-chan struct{} { return b.done }

// Complete reports whether both sides have arrived.
func (b *Barrier) Complete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flightDone && b.crewDone
}
