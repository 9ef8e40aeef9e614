package session

import (
	"context"
	"sync"
)

const subscriberBuffer = 4

// hub fans snapshots out to subscribers. Sends never block: a full
// subscriber loses its oldest pending snapshot so the newest always lands.
type hub struct {
	mu   sync.Mutex
	subs map[int]chan Snapshot
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Snapshot)}
}

func (h *hub) subscribe(ctx context.Context, initial Snapshot) <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)
	ch <- initial

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func (h *hub) publish(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
