package tracker

import (
	"errors"
	"testing"

	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/brianly1003/foldersentinel/internal/domain/events"
	"github.com/brianly1003/foldersentinel/internal/testutil"
)

func seedPending(f *fixture, paths ...string) {
	for _, p := range paths {
		f.created(p, "/r")
	}
}

func TestDisposeAll_EmptyList(t *testing.T) {
	f := newFixture(t)

	res, err := f.tracker.DisposeAll(domain.ModeTrash, nil)

	testutil.AssertErrorIs(t, err, domain.ErrNothingPending, "DisposeAll")
	testutil.AssertEqual(t, 0, len(res.Disposed), "disposed")
	testutil.AssertEqual(t, 0, len(f.disposer.Calls()), "disposer calls")

	logs := f.tracker.Logs(0)
	if len(logs) != 1 || logs[0].Level != domain.LevelWarning {
		t.Errorf("logs = %v, want a single warning", logs)
	}
}

func TestDisposeAll_AllSucceed(t *testing.T) {
	for _, mode := range []domain.DisposalMode{domain.ModeTrash, domain.ModePermanent} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t)
			seedPending(f, "/r/a", "/r/b", "/r/c")
			before := len(f.tracker.Logs(0))

			res, err := f.tracker.DisposeAll(mode, nil)

			testutil.AssertNoError(t, err, "DisposeAll")
			testutil.AssertFalse(t, res.Aborted, "aborted")
			testutil.AssertEqual(t, 3, len(res.Disposed), "disposed")
			testutil.AssertEqual(t, 0, res.Remaining, "remaining")
			testutil.AssertEqual(t, 0, len(f.tracker.Pending()), "pending size")

			calls := f.disposer.Calls()
			for i, want := range []string{"/r/a", "/r/b", "/r/c"} {
				testutil.AssertEqual(t, want, calls[i].Path, "call order")
				testutil.AssertEqual(t, mode, calls[i].Mode, "call mode")
			}

			added := f.tracker.Logs(before)
			testutil.AssertEqual(t, 3, len(added), "one log per item")
			testutil.AssertContains(t, added[0].Message, "/r/a", "log names path")
			testutil.AssertContains(t, added[0].Message, pastTense(mode), "log names mode")
		})
	}
}

func TestDisposeAll_AbortLeavesFailedAndLaterItems(t *testing.T) {
	f := newFixture(t)
	seedPending(f, "/r/a", "/r/b", "/r/c", "/r/d")
	f.disposer.FailTimes("/r/b", -1)

	var asked []string
	res, err := f.tracker.DisposeAll(domain.ModePermanent, func(folder domain.PendingFolder, attempt int, err error) Decision {
		asked = append(asked, folder.FullPath)
		return Abort
	})

	testutil.AssertNoError(t, err, "DisposeAll")
	testutil.AssertTrue(t, res.Aborted, "aborted")
	assertPaths(t, pendingPaths(res.Disposed), []string{"/r/a"})
	assertPaths(t, pendingPaths(f.tracker.Pending()), []string{"/r/b", "/r/c", "/r/d"})
	assertPaths(t, asked, []string{"/r/b"})
	testutil.AssertEqual(t, 3, res.Remaining, "remaining")
	if res.Failed == nil || res.Failed.FullPath != "/r/b" {
		t.Errorf("failed = %v, want /r/b", res.Failed)
	}
	testutil.AssertContains(t, res.Error, "access denied", "result error")

	// Items after the failed one are never attempted.
	testutil.AssertEqual(t, 2, len(f.disposer.Calls()), "disposer calls")
	testutil.AssertEqual(t, 1, countLevel(f.tracker.Logs(0), domain.LevelError), "error logs")
}

func TestDisposeAll_NilDecideAborts(t *testing.T) {
	f := newFixture(t)
	seedPending(f, "/r/a", "/r/b")
	f.disposer.FailTimes("/r/a", 1)

	res, _ := f.tracker.DisposeAll(domain.ModeTrash, nil)

	testutil.AssertTrue(t, res.Aborted, "aborted")
	testutil.AssertEqual(t, 1, len(f.disposer.Calls()), "disposer calls")
	testutil.AssertEqual(t, 2, len(f.tracker.Pending()), "pending size")
}

func TestDisposeAll_RetryThenSucceed(t *testing.T) {
	f := newFixture(t)
	seedPending(f, "/r/a", "/r/b")
	f.disposer.FailTimes("/r/a", 2)

	var attempts []int
	var gotErr error
	res, err := f.tracker.DisposeAll(domain.ModeTrash, func(_ domain.PendingFolder, attempt int, err error) Decision {
		attempts = append(attempts, attempt)
		gotErr = err
		return Retry
	})

	testutil.AssertNoError(t, err, "DisposeAll")
	testutil.AssertFalse(t, res.Aborted, "aborted")
	testutil.AssertEqual(t, 0, len(f.tracker.Pending()), "pending size")
	testutil.AssertEqual(t, 4, len(f.disposer.Calls()), "disposer calls")
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("attempts = %v, want [1 2]", attempts)
	}

	var derr *domain.DisposalError
	if !errors.As(gotErr, &derr) {
		t.Fatalf("decide error = %T, want *domain.DisposalError", gotErr)
	}
	testutil.AssertEqual(t, "/r/a", derr.Path, "error path")
	testutil.AssertEqual(t, domain.ModeTrash, derr.Mode, "error mode")
}

func TestDisposeAll_RetryUpTo(t *testing.T) {
	f := newFixture(t)
	seedPending(f, "/r/a", "/r/b")
	f.disposer.FailTimes("/r/b", -1)

	res, _ := f.tracker.DisposeAll(domain.ModePermanent, RetryUpTo(2))

	testutil.AssertTrue(t, res.Aborted, "aborted")
	// /r/a once, /r/b three times.
	testutil.AssertEqual(t, 4, len(f.disposer.Calls()), "disposer calls")
	assertPaths(t, pendingPaths(f.tracker.Pending()), []string{"/r/b"})
}

func TestDisposeAll_PublishesPendingChange(t *testing.T) {
	f := newFixture(t)
	seedPending(f, "/r/a")
	f.hub.Reset()

	_, _ = f.tracker.DisposeAll(domain.ModeTrash, nil)

	changes := f.hub.EventsOfType(events.EventTypePendingChanged)
	if len(changes) != 1 {
		t.Fatalf("pending_changed events = %d, want 1", len(changes))
	}
	p := changes[0].Payload.(events.PendingPayload)
	testutil.AssertEqual(t, 0, len(p.Pending), "published pending size")
}

func TestDisposeAll_DeletionEventAfterDisposalIsIgnored(t *testing.T) {
	f := newFixture(t)
	seedPending(f, "/r/a")
	_, _ = f.tracker.DisposeAll(domain.ModePermanent, nil)
	before := len(f.tracker.Logs(0))

	// The watch reports the removal the disposal itself caused.
	f.deleted("/r/a", "/r")

	testutil.AssertEqual(t, before, len(f.tracker.Logs(0)), "log size")
}

func TestRetryUpTo(t *testing.T) {
	decide := RetryUpTo(1)
	folder := domain.PendingFolder{FullPath: "/r/a"}

	testutil.AssertEqual(t, Retry, decide(folder, 1, nil), "first failure")
	testutil.AssertEqual(t, Abort, decide(folder, 2, nil), "second failure")
	testutil.AssertEqual(t, Abort, RetryUpTo(0)(folder, 1, nil), "zero retries")
}
