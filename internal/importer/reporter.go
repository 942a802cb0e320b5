package importer

import "sync"

// reporter feeds a bounded channel without ever blocking the pipeline. When
// the buffer is full the oldest event is dropped.
type reporter struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped int
	last    Event
}

func newReporter(size int) *reporter {
	if size < 1 {
		size = 1
	}
	return &reporter{ch: make(chan Event, size)}
}

func (r *reporter) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.last = e
	for {
		select {
		case r.ch <- e:
			return
		default:
		}
		select {
		case <-r.ch:
			r.dropped++
		default:
		}
	}
}

// finish delivers the terminal event and closes the channel.
func (r *reporter) finish(e Event) {
	r.emit(e)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
}

func (r *reporter) lastEvent() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *reporter) droppedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
