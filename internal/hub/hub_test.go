package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/testutil"
)

const deliveryTimeout = 5 * time.Second

var errClientGone = errors.New("websocket client gone")

func startHub(t *testing.T, size int) *Hub {
	t.Helper()
	h := NewWithBuffer(size)
	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Stop() })
	return h
}

func drainAll(t *testing.T, inbox *QueueSubscriber, want int) []events.Event {
	t.Helper()
	testutil.Eventually(t, deliveryTimeout, func() bool {
		return inbox.Len() >= want
	}, fmt.Sprintf("waiting for %d events", want))
	return inbox.Drain()
}

func TestHub_BurstLargerThanQueueIsDelivered(t *testing.T) {
	h := startHub(t, 4)
	inbox := NewQueueSubscriber("tracker")
	h.Subscribe(inbox)

	const n = 2000
	for i := 0; i < n; i++ {
		h.Publish(events.NewFolderCreatedEvent(fmt.Sprintf("/data/a/dir-%04d", i), "/data/a"))
	}

	got := testutil.FolderChanges(drainAll(t, inbox, n))["/data/a"]
	if len(got) != n {
		t.Fatalf("delivered %d folder events, want %d", len(got), n)
	}
	for i, change := range got {
		if want := fmt.Sprintf("+/data/a/dir-%04d", i); change != want {
			t.Fatalf("event %d = %q, want %q", i, change, want)
		}
	}
}

func TestHub_FolderEventsKeepPerRootOrder(t *testing.T) {
	h := startHub(t, 8)
	inbox := NewQueueSubscriber("tracker")
	h.Subscribe(inbox)

	roots := []string{"/data/a", "/data/b", "/data/c"}
	const perRoot = 300

	var wg sync.WaitGroup
	for _, root := range roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			for i := 0; i < perRoot; i++ {
				path := fmt.Sprintf("%s/dir-%03d", root, i)
				h.Publish(events.NewFolderCreatedEvent(path, root))
				h.Publish(events.NewFolderDeletedEvent(path, root))
			}
		}(root)
	}
	wg.Wait()

	byRoot := testutil.FolderChanges(drainAll(t, inbox, len(roots)*perRoot*2))
	for _, root := range roots {
		got := byRoot[root]
		if len(got) != perRoot*2 {
			t.Fatalf("%s: delivered %d events, want %d", root, len(got), perRoot*2)
		}
		for i := 0; i < perRoot; i++ {
			path := fmt.Sprintf("%s/dir-%03d", root, i)
			if got[2*i] != "+"+path || got[2*i+1] != "-"+path {
				t.Fatalf("%s: events %d,%d = %q,%q, want create then delete of %s",
					root, 2*i, 2*i+1, got[2*i], got[2*i+1], path)
			}
		}
	}
}

func TestHub_SubscriberSeesEventsPublishedAfterSubscribe(t *testing.T) {
	h := startHub(t, 0)

	// Subscribe returns once the loop owns the subscriber, so nothing
	// published afterwards can miss it.
	for i := 0; i < 50; i++ {
		inbox := NewQueueSubscriber(fmt.Sprintf("client-%d", i))
		h.Subscribe(inbox)
		h.Publish(events.NewFolderCreatedEvent("/data/a/new", "/data/a"))
		if got := drainAll(t, inbox, 1); len(got) == 0 {
			t.Fatalf("subscriber %d missed the event", i)
		}
		h.Unsubscribe(inbox.ID())
	}
}

func TestHub_PublishBeforeStartDrops(t *testing.T) {
	h := NewWithBuffer(1)

	returned := make(chan struct{})
	go func() {
		h.Publish(events.NewFolderCreatedEvent("/data/a/x", "/data/a"))
		h.Publish(events.NewFolderCreatedEvent("/data/a/y", "/data/a"))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a hub that was never started")
	}
	if n := len(h.broadcast); n != 0 {
		t.Errorf("queued %d events on a stopped hub, want 0", n)
	}
}

func TestHub_StopReleasesBlockedPublisher(t *testing.T) {
	// A running hub whose loop is stalled: the queue fills and stays full.
	h := NewWithBuffer(1)
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	h.broadcast <- events.NewFolderCreatedEvent("/data/a/first", "/data/a")

	returned := make(chan struct{})
	go func() {
		h.Publish(events.NewFolderCreatedEvent("/data/a/second", "/data/a"))
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("Publish returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	_ = h.Stop()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Publish still blocked after Stop")
	}
}

func TestHub_FailedClientDoesNotStarveTracker(t *testing.T) {
	h := startHub(t, 4)
	inbox := NewQueueSubscriber("tracker")
	gone := testutil.NewRecordingSubscriber("client-1")
	gone.Fail(errClientGone)
	h.Subscribe(inbox)
	h.Subscribe(gone)

	const n = 100
	for i := 0; i < n; i++ {
		h.Publish(events.NewFolderCreatedEvent(fmt.Sprintf("/data/a/dir-%d", i), "/data/a"))
	}

	if got := drainAll(t, inbox, n); len(got) != n {
		t.Errorf("tracker received %d events, want %d", len(got), n)
	}
	testutil.Eventually(t, deliveryTimeout, func() bool {
		return gone.IsClosed() && h.SubscriberCount() == 1
	}, "failed client removed")
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h := NewWithBuffer(0)
	_ = h.Start()
	_ = h.Start()
	if !h.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	inbox := NewQueueSubscriber("tracker")
	client := testutil.NewRecordingSubscriber("client-1")
	h.Subscribe(inbox)
	h.Subscribe(client)

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := h.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if h.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}

	select {
	case <-inbox.Done():
	default:
		t.Error("tracker inbox not closed by Stop")
	}
	if !client.IsClosed() {
		t.Error("client not closed by Stop")
	}

	// A client connecting during shutdown must not hang.
	subscribed := make(chan struct{})
	go func() {
		h.Subscribe(testutil.NewRecordingSubscriber("late"))
		close(subscribed)
	}()
	select {
	case <-subscribed:
	case <-time.After(time.Second):
		t.Fatal("Subscribe blocked on a stopped hub")
	}
}

func TestNewWithBuffer_NonPositiveUsesDefault(t *testing.T) {
	if got := cap(NewWithBuffer(0).broadcast); got != DefaultBufferSize {
		t.Errorf("cap = %d, want %d", got, DefaultBufferSize)
	}
	if got := cap(NewWithBuffer(16).broadcast); got != 16 {
		t.Errorf("cap = %d, want 16", got)
	}
}
