package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"whackgoblin/internal/events"
	"whackgoblin/internal/wshub"
)

type HxEventMessage struct {
	Event string
	Msg   string
}

// Broadcaster fans game patches out to SSE subscribers and, when set, to the
// websocket hub of the same session.
type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan HxEventMessage]bool
	hub     *wshub.Hub
	done    chan struct{}
}

// NewBroadcaster forwards every patch on the bus until the bus is closed.
func NewBroadcaster(bus *events.Bus, hub *wshub.Hub) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan HxEventMessage]bool),
		hub:     hub,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for p := range bus.Patches {
			data, err := json.Marshal(p)
			if err != nil {
				log.Printf("[Broadcast] Marshal error: %v\n", err)
				continue
			}
			b.BroadcastOOB(p.Type, string(data))
			if b.hub != nil {
				b.hub.Broadcast(data)
			}
		}
	}()
	return b
}

// Done is closed once the bus has been drained and closed.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

func (b *Broadcaster) Subscribe() chan HxEventMessage {
	ch := make(chan HxEventMessage, 32)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan HxEventMessage) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

func (b *Broadcaster) BroadcastOOB(event string, message string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- HxEventMessage{Event: event, Msg: message}:
		default:
			// skip clients with full data channels
		}
	}
}
