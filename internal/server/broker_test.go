package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	ch := b.Subscribe("s1")
	other := b.Subscribe("s2")
	defer b.Unsubscribe("s1", ch)
	defer b.Unsubscribe("s2", other)

	b.Publish(ctx, SessionEvent{
		Type:      "progress",
		SessionID: "s1",
		StepIndex: 2,
		Status:    "active",
	})

	select {
	case data := <-ch:
		var ev SessionEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != "progress" || ev.StepIndex != 2 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	// Events are keyed by session; other sessions hear nothing.
	select {
	case data := <-other:
		t.Fatalf("unexpected delivery to other session: %s", data)
	default:
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	ch := b.Subscribe("s1")
	b.Unsubscribe("s1", ch)

	// Publishing after unsubscribe must not block or panic.
	b.Publish(ctx, SessionEvent{Type: "progress", SessionID: "s1"})

	select {
	case data := <-ch:
		t.Fatalf("unexpected delivery after unsubscribe: %s", data)
	default:
	}
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	ch := b.Subscribe("s1")
	defer b.Unsubscribe("s1", ch)

	// Overflow the buffered channel; extra events are dropped, not queued.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(ctx, SessionEvent{Type: "progress", SessionID: "s1", StepIndex: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
