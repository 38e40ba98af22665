package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// SessionEvent is the payload published to session subscribers.
type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	StepIndex int    `json:"stepIndex"`
	Status    string `json:"status"`
	Next      string `json:"next,omitempty"`
}

const sessionChannelPrefix = "sessions."

// Broker is a pub/sub for session progress events, keyed by session ID.
// Without Redis, publishes deliver directly to in-process subscribers.
// With Redis, every publish goes through a Redis channel and the Run loop
// delivers to local subscribers, so all instances see every event exactly
// once per subscriber.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
	rdb  *redis.Client
}

func NewBroker(rdb *redis.Client) *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
		rdb:  rdb,
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given session.
func (b *Broker) Subscribe(sessionID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan []byte]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(ctx context.Context, event SessionEvent) {
	data, _ := json.Marshal(event)
	if b.rdb != nil {
		b.rdb.Publish(ctx, sessionChannelPrefix+event.SessionID, data)
		return
	}
	b.deliver(event.SessionID, data)
}

func (b *Broker) deliver(sessionID string, data []byte) {
	b.mu.RLock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Run forwards Redis-published events to local subscribers until ctx is
// cancelled. Without Redis it just waits for cancellation.
func (b *Broker) Run(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := b.rdb.PSubscribe(ctx, sessionChannelPrefix+"*")
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			id := strings.TrimPrefix(msg.Channel, sessionChannelPrefix)
			b.deliver(id, []byte(msg.Payload))
		}
	}
}
