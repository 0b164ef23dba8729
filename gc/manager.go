package gc

import (
	"context"
	"time"
)

// Manager is the package's public entry point: it owns the background
// driver and the collaborator wiring, and exposes the foreground GC call
// (spec.md sec. 6 "the core exposes").
type Manager struct {
	Collaborators *Collaborators
	Driver        *Driver
	IO            IOHook

	// Telemetry, if set, observes every completed foreground reclamation
	// pass (F2fsGC). Use SetTelemetry, not direct assignment, so the
	// background driver's passes are observed too.
	Telemetry TelemetryFunc

	cancel context.CancelFunc
}

// SetTelemetry wires fn as the observer for both foreground (F2fsGC) and
// background (Driver) reclamation passes.
func (m *Manager) SetTelemetry(fn TelemetryFunc) {
	m.Telemetry = fn
	m.Driver.Telemetry = fn
}

// BuildGCManager wires a Manager around the given collaborators. nGC is
// the default target passed to the background driver's reclamation
// cycles.
func BuildGCManager(c *Collaborators, io IOHook, nGC int) *Manager {
	return &Manager{Collaborators: c, Driver: NewDriver(nGC), IO: io}
}

// DestroyGCManager stops the background worker if running. Safe to call
// on a manager that was never started.
func DestroyGCManager(m *Manager) {
	m.StopGCThread()
}

// StartGCThread launches the background worker on its own goroutine.
// Calling it twice without an intervening StopGCThread leaks the first
// goroutine until ctx is cancelled some other way.
func (m *Manager) StartGCThread(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.Driver.Run(ctx, m.Collaborators, m.IO)
}

// StopGCThread signals the background worker to exit at its next wait
// or iteration boundary. It does not block for the goroutine to finish.
func (m *Manager) StopGCThread() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// F2fsGC runs one foreground reclamation pass, blocking on the GC lock
// rather than trying it (spec.md sec. 5 "Foreground GC runs in caller
// context"). nGC is the minimum number of free sections to gain.
func (m *Manager) F2fsGC(ctx context.Context, nGC int) ReclaimStatus {
	m.Collaborators.GCLock.Lock()
	start := time.Now()
	status := RunReclamationLoop(ctx, m.Collaborators, GCForeground, nGC)
	if m.Telemetry != nil {
		m.Telemetry(GCForeground, status, time.Since(start))
	}
	return status
}

// CreateGCCaches and DestroyGCCaches are no-ops in this port: Go's
// runtime allocator replaces the slab-cache glue the source used for
// inode-worklist entries (spec.md sec. 1 "out of scope: ... slab/
// allocator glue"). They exist so callers mirroring the source's
// init/teardown sequence have something to call.
func CreateGCCaches() error  { return nil }
func DestroyGCCaches()      {}
