package events

import (
    "sync"
)

const subscriberBuffer = 64

// Hub is the in-process publish/subscribe mechanism. Subscribers get a
// buffered channel per campaign; a slow subscriber loses its oldest event
// rather than stalling the dispatcher loop.
type Hub struct {
    mu   sync.Mutex
    subs map[int][]chan Event
}

func NewHub() *Hub {
    return &Hub{subs: make(map[int][]chan Event)}
}

// Subscribe returns a channel of events for one campaign and a cancel
// function that closes it.
func (h *Hub) Subscribe(campaignID int) (<-chan Event, func()) {
    ch := make(chan Event, subscriberBuffer)

    h.mu.Lock()
    h.subs[campaignID] = append(h.subs[campaignID], ch)
    h.mu.Unlock()

    cancel := func() {
        h.mu.Lock()
        defer h.mu.Unlock()
        chans := h.subs[campaignID]
        for i, c := range chans {
            if c == ch {
                h.subs[campaignID] = append(chans[:i], chans[i+1:]...)
                close(ch)
                return
            }
        }
    }
    return ch, cancel
}

func (h *Hub) Publish(e Event) error {
    h.mu.Lock()
    defer h.mu.Unlock()

    for _, ch := range h.subs[e.CampaignID] {
        select {
        case ch <- e:
        default:
            // full: drop the oldest so the newest state wins
            select {
            case <-ch:
            default:
            }
            select {
            case ch <- e:
            default:
            }
        }
    }
    return nil
}

var _ Publisher = (*Hub)(nil)

// Fanout publishes to several publishers in order; the first error wins but
// every publisher still gets the event.
type Fanout []Publisher

func (f Fanout) Publish(e Event) error {
    var firstErr error
    for _, p := range f {
        if err := p.Publish(e); err != nil && firstErr == nil {
            firstErr = err
        }
    }
    return firstErr
}
