package hub

import (
	"testing"

	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/testutil"
)

func TestFilteredSubscriber_NoFilterForwardsEverything(t *testing.T) {
	inner := testutil.NewRecordingSubscriber("client-1")
	fs := NewFilteredSubscriber(inner)

	_ = fs.Send(events.NewFolderCreatedEvent("/a/x", "/a"))
	_ = fs.Send(events.NewHeartbeatEvent())

	if inner.EventCount() != 2 {
		t.Errorf("expected 2 events forwarded, got %d", inner.EventCount())
	}
	if fs.IsFiltering() {
		t.Error("IsFiltering() = true, want false")
	}
}

func TestFilteredSubscriber_TypeFilter(t *testing.T) {
	inner := testutil.NewRecordingSubscriber("tracker")
	fs := NewFilteredSubscriber(inner,
		events.EventTypeFolderCreated,
		events.EventTypeFolderDeleted,
		events.EventTypeWatchError,
	)

	_ = fs.Send(events.NewFolderCreatedEvent("/a/x", "/a"))
	_ = fs.Send(events.NewPendingChangedEvent(nil))
	_ = fs.Send(events.NewFolderDeletedEvent("/a/x", "/a"))
	_ = fs.Send(events.NewHeartbeatEvent())

	if inner.EventCount() != 2 {
		t.Fatalf("expected 2 registry events forwarded, got %d", inner.EventCount())
	}
	got := inner.Events()
	if got[0].Type() != events.EventTypeFolderCreated || got[1].Type() != events.EventTypeFolderDeleted {
		t.Errorf("forwarded types = %s, %s", got[0].Type(), got[1].Type())
	}
}

func TestFilteredSubscriber_RootFilter(t *testing.T) {
	inner := testutil.NewRecordingSubscriber("client-1")
	fs := NewFilteredSubscriber(inner)
	fs.SubscribeRoot("/a")

	_ = fs.Send(events.NewFolderCreatedEvent("/a/x", "/a"))
	_ = fs.Send(events.NewFolderCreatedEvent("/b/y", "/b"))
	// Untagged events pass the root filter
	_ = fs.Send(events.NewPendingChangedEvent(nil))

	if inner.EventCount() != 2 {
		t.Errorf("expected 2 events forwarded, got %d", inner.EventCount())
	}

	fs.UnsubscribeRoot("/a")
	_ = fs.Send(events.NewFolderCreatedEvent("/b/y", "/b"))
	if inner.EventCount() != 3 {
		t.Errorf("expected 3 events after removing root filter, got %d", inner.EventCount())
	}
}

func TestFilteredSubscriber_SubscribeAllClears(t *testing.T) {
	inner := testutil.NewRecordingSubscriber("client-1")
	fs := NewFilteredSubscriber(inner, events.EventTypeWatchError)
	fs.SubscribeRoot("/a")

	if !fs.IsFiltering() {
		t.Fatal("IsFiltering() = false, want true")
	}

	fs.SubscribeAll()
	_ = fs.Send(events.NewFolderCreatedEvent("/b/y", "/b"))

	if inner.EventCount() != 1 {
		t.Errorf("expected event forwarded after SubscribeAll, got %d", inner.EventCount())
	}
}

func TestFilteredSubscriber_DelegatesLifecycle(t *testing.T) {
	inner := testutil.NewRecordingSubscriber("client-9")
	fs := NewFilteredSubscriber(inner)

	if fs.ID() != "client-9" {
		t.Errorf("ID() = %q, want client-9", fs.ID())
	}
	_ = fs.Close()
	if !inner.IsClosed() {
		t.Error("inner subscriber should be closed")
	}
	select {
	case <-fs.Done():
	default:
		t.Error("Done() should be closed after Close()")
	}
}
