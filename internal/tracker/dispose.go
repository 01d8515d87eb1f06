package tracker

import (
	"fmt"

	"github.com/brianly1003/foldersentinel/internal/domain"
	"github.com/rs/zerolog/log"
)

// Decision is the caller's answer to a failed disposal attempt.
type Decision int

const (
	// Abort stops the run, leaving the failed and later items pending.
	Abort Decision = iota
	// Retry attempts the same item again.
	Retry
)

func (d Decision) String() string {
	if d == Retry {
		return "retry"
	}
	return "abort"
}

// DecideFunc is consulted after every failed attempt. attempt starts at 1.
// It runs on the owner goroutine and must not call back into the Tracker.
type DecideFunc func(folder domain.PendingFolder, attempt int, err error) Decision

// RetryUpTo returns a DecideFunc that retries each item n more times and
// then aborts.
func RetryUpTo(n int) DecideFunc {
	return func(_ domain.PendingFolder, attempt int, _ error) Decision {
		if attempt <= n {
			return Retry
		}
		return Abort
	}
}

// DisposeResult reports the outcome of DisposeAll.
type DisposeResult struct {
	Mode     domain.DisposalMode    `json:"mode"`
	Disposed []domain.PendingFolder `json:"disposed"`
	// Failed is the item that caused an abort, if any.
	Failed  *domain.PendingFolder `json:"failed,omitempty"`
	Error   string                `json:"error,omitempty"`
	Aborted bool                  `json:"aborted"`
	// Remaining is the pending list size after the run.
	Remaining int `json:"remaining"`
}

// DisposeAll disposes of a snapshot of the pending list in order. On failure
// decide chooses between retrying the item and aborting the run; a nil
// decide aborts. An empty list is logged as a warning and yields
// domain.ErrNothingPending.
func (t *Tracker) DisposeAll(mode domain.DisposalMode, decide DecideFunc) (DisposeResult, error) {
	var (
		result DisposeResult
		runErr error
	)
	err := t.do(func() { result, runErr = t.disposeAllLocked(mode, decide) })
	if err != nil {
		return DisposeResult{}, err
	}
	return result, runErr
}

func (t *Tracker) disposeAllLocked(mode domain.DisposalMode, decide DecideFunc) (DisposeResult, error) {
	result := DisposeResult{Mode: mode}

	if len(t.pending) == 0 {
		t.appendLog(domain.LevelWarning, fmt.Sprintf("pending list is empty, nothing to %s", verb(mode)))
		return result, domain.ErrNothingPending
	}
	if decide == nil {
		decide = func(domain.PendingFolder, int, error) Decision { return Abort }
	}

	snapshot := t.copyPending()
	log.Info().Str("mode", string(mode)).Int("count", len(snapshot)).Msg("disposing pending folders")

	changed := false
	for _, folder := range snapshot {
		if !t.disposeOne(folder, mode, decide, &result) {
			result.Aborted = true
			break
		}
		// The folder may already have been dropped by a deletion event.
		t.removePending(folder.FullPath)
		changed = true
		result.Disposed = append(result.Disposed, folder)
		t.appendLog(domain.LevelInfo, fmt.Sprintf("%s: %s", pastTense(mode), folder.FullPath))
	}

	if changed {
		t.publishPending()
	}
	result.Remaining = len(t.pending)
	return result, nil
}

// disposeOne attempts folder until it succeeds or decide aborts.
func (t *Tracker) disposeOne(folder domain.PendingFolder, mode domain.DisposalMode, decide DecideFunc, result *DisposeResult) bool {
	for attempt := 1; ; attempt++ {
		err := t.disposer.Dispose(folder.FullPath, mode)
		if err == nil {
			return true
		}

		derr := domain.NewDisposalError(folder.FullPath, mode, err)
		decision := decide(folder, attempt, derr)
		log.Warn().
			Err(err).
			Str("path", folder.FullPath).
			Int("attempt", attempt).
			Str("decision", decision.String()).
			Msg("disposal failed")

		if decision != Retry {
			t.appendLog(domain.LevelError, fmt.Sprintf("failed to %s %s: %v", verb(mode), folder.FullPath, err))
			failed := folder
			result.Failed = &failed
			result.Error = derr.Error()
			return false
		}
	}
}

func verb(mode domain.DisposalMode) string {
	if mode == domain.ModeTrash {
		return "move to trash"
	}
	return "delete"
}

func pastTense(mode domain.DisposalMode) string {
	if mode == domain.ModeTrash {
		return "moved to trash"
	}
	return "deleted"
}
