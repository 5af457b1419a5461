// control.go — process-wide stop flag for the worker fleet
// ============================================================================
// SHUTDOWN COORDINATION
// ============================================================================
//
// Control provides the one piece of global signaling the worker binary
// needs: an atomic stop flag raised by SIGINT/SIGTERM. Shard loops poll it
// between shards only — a shard either runs to completion or is abandoned
// with the process, never cancelled mid-stream, so an interrupted worker
// leaves nothing half-reported.

package control

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

var stop atomic.Uint32

// RequestStop raises the stop flag. Idempotent.
func RequestStop() { stop.Store(1) }

// Stopping reports whether shutdown has been requested.
//
//go:inline
func Stopping() bool { return stop.Load() == 1 }

// InstallSignalHandler translates SIGINT/SIGTERM into RequestStop. The
// second signal falls through to the default handler and kills the process.
func InstallSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		RequestStop()
		signal.Stop(ch)
	}()
}
