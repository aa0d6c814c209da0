package upload

import "hairstudio/internal/domain"

type EventKind string

const (
	EventProgress EventKind = "progress"
	EventSuccess  EventKind = "success"
	EventFailure  EventKind = "failure"
)

// Event reports progress of one upload generation. Events from superseded
// generations are never published.
type Event struct {
	Key        domain.AssetKey `json:"key"`
	Kind       EventKind       `json:"kind"`
	Generation uint64          `json:"generation"`
	Sent       int64           `json:"sent,omitempty"`
	Total      int64           `json:"total,omitempty"`
	URL        string          `json:"url,omitempty"`
	Err        error           `json:"-"`
	Message    string          `json:"error,omitempty"`
}

// Percent returns progress in the 0-100 range.
func (e Event) Percent() int {
	if e.Kind == EventSuccess {
		return 100
	}
	if e.Total <= 0 {
		return 0
	}
	p := int(e.Sent * 100 / e.Total)
	if p > 100 {
		p = 100
	}
	return p
}

type subscriber struct {
	ch      chan Event
	dropped int
}

// Subscribe registers an observer. Sends never block the coordinator: when
// the buffer is full the event is dropped for that observer. The returned
// func unregisters and closes the channel.
func (c *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscriber{ch: make(chan Event, buffer)}

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.mu.Unlock()

	var once bool
	return sub.ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if once {
			return
		}
		once = true
		delete(c.subs, id)
		close(sub.ch)
	}
}

// publishLocked must be called with c.mu held.
func (c *Coordinator) publishLocked(ev Event) {
	if ev.Err != nil {
		ev.Message = ev.Err.Error()
	}
	for _, sub := range c.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
		}
	}
}
