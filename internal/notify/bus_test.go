package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, sub := b.Subscribe(4)
	defer b.Unsubscribe(sub)

	b.Publish(ChangeEvent{AppID: "nginx", JobID: 1, Revision: 3})

	select {
	case got := <-ch:
		require.Equal(t, "nginx", got.AppID)
		require.Equal(t, uint64(3), got.Revision)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_DeliveryOrderMatchesPublishOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, _ := b.Subscribe(8)
	for rev := uint64(1); rev <= 5; rev++ {
		b.Publish(ChangeEvent{Revision: rev})
	}

	for rev := uint64(1); rev <= 5; rev++ {
		got := <-ch
		require.Equal(t, rev, got.Revision)
	}
}

func TestBus_SlowSubscriberCoalescesInsteadOfBlocking(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, _ := b.Subscribe(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for rev := uint64(1); rev <= 100; rev++ {
			b.Publish(ChangeEvent{Revision: rev})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Whatever survived coalescing, the subscriber wakes with the newest cue.
	got := <-ch
	require.Equal(t, uint64(100), got.Revision)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, sub := b.Subscribe(1)
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())

	_, ok := <-ch
	require.False(t, ok)

	// Double unsubscribe must be safe.
	b.Unsubscribe(sub)
}

func TestBus_Close(t *testing.T) {
	b := NewBus()

	ch, _ := b.Subscribe(1)
	b.Close()

	_, ok := <-ch
	require.False(t, ok)

	// Publish and subscribe after close are no-ops.
	b.Publish(ChangeEvent{Revision: 1})
	ch2, sub2 := b.Subscribe(1)
	require.Equal(t, Subscription(0), sub2)
	_, ok = <-ch2
	require.False(t, ok)
}

func TestBus_MultipleSubscribersEachReceive(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch1, _ := b.Subscribe(2)
	ch2, _ := b.Subscribe(2)

	b.Publish(ChangeEvent{Revision: 9})

	require.Equal(t, uint64(9), (<-ch1).Revision)
	require.Equal(t, uint64(9), (<-ch2).Revision)
}
