// Package limiter provides fixed-window failure counters used to lock out
// repeated bad attempts (wrong passwords, wrong verification codes).
//
// Two backends exist: Memory for a single instance and Redis when several
// API instances must share the same counts.
package limiter

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the counter backend could not be reached.
var ErrUnavailable = errors.New("limiter: backend unavailable")

// Counter counts events per key inside a fixed window that starts on the
// first event.
type Counter interface {
	// Incr records one event and returns the count inside the current window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// Get returns the current count, zero when the window has lapsed.
	Get(ctx context.Context, key string) (int64, error)
	// Release takes back one event recorded by Incr. It never drops the
	// count below zero or revives a lapsed window.
	Release(ctx context.Context, key string) error
	// Reset forgets the key.
	Reset(ctx context.Context, key string) error
}
