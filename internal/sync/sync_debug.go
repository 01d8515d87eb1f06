//go:build deadlock

// Package sync provides the mutex types used by foldersentinel.
// This build uses go-deadlock so lock-order inversions between the hub,
// the watch registry and the tracker mailbox are reported.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Mutex is a go-deadlock mutex.
type Mutex = deadlock.Mutex

// RWMutex is a go-deadlock reader/writer mutex.
type RWMutex = deadlock.RWMutex

// Once is the standard sync.Once.
type Once = sync.Once

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// DeadlockDetection reports whether instrumented locks are compiled in.
func DeadlockDetection() bool {
	return !deadlock.Opts.Disable
}

func init() {
	deadlock.Opts.DeadlockTimeout = 30 * time.Second

	if os.Getenv("FSENTINEL_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	deadlock.Opts.PrintAllCurrentGoroutines = true
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error().Msg("potential deadlock detected")
		os.Exit(2)
	}
}
