package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubDeliversToMatchingSubscribers(t *testing.T) {
	h := NewHub()

	contribCh, cancelContrib := h.Subscribe("contributions")
	defer cancelContrib()
	allCh, cancelAll := h.Subscribe()
	defer cancelAll()

	h.Publish("contributions", OpInsert)

	ev := recvEvent(t, contribCh)
	require.Equal(t, "contributions", ev.Table)
	require.Equal(t, OpInsert, ev.Op)

	ev = recvEvent(t, allCh)
	require.Equal(t, "contributions", ev.Table)
}

func TestHubSkipsNonMatchingTables(t *testing.T) {
	h := NewHub()

	expenseCh, cancel := h.Subscribe("expenses")
	defer cancel()

	h.Publish("members", OpUpdate)

	select {
	case ev := <-expenseCh:
		t.Fatalf("unexpected event delivered: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("members")
	require.Equal(t, 1, h.SubscriberCount())

	cancel()
	require.Equal(t, 0, h.SubscriberCount())

	_, open := <-ch
	require.False(t, open)

	// Cancel twice is safe.
	cancel()
}

func TestHubDropsEventsForSlowSubscriber(t *testing.T) {
	h := NewHub()

	ch, cancel := h.Subscribe("contributions")
	defer cancel()

	// Overflow the buffer; publishes must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish("contributions", OpInsert)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	require.LessOrEqual(t, len(ch), 16)
}
