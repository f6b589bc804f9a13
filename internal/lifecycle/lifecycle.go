// Package lifecycle tracks the process drain state shared by the health
// endpoint and the notification sweep.
package lifecycle

import "sync/atomic"

var shuttingDown atomic.Bool

// SetShuttingDown sets the drain flag. Call when SIGTERM/SIGINT is received.
// While true the health handler answers 503 shutting-down and the sweeper
// stops dispatching pushes.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}
