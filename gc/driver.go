package gc

import (
	"context"
	"time"
)

// TelemetryFunc observes one completed reclamation pass (spec.md sec. 6
// stats read path). It lets a caller record GC call counts and outcomes
// without this package depending on any particular collector
// implementation.
type TelemetryFunc func(gcType GCType, status ReclaimStatus, elapsed time.Duration)

// Driver runs the long-lived background GC worker (spec.md sec. 4.2,
// component C2). It holds the adaptive sleep state; everything else
// (idleness, free-space pressure, the reclamation loop itself) is
// delegated to Collaborators.
type Driver struct {
	Sleep   *SleepController
	WaitMs  int64
	Disable bool // background GC disabled by option (spec.md sec. 4.2 step 5)

	// Telemetry, if set, observes every completed background
	// reclamation pass.
	Telemetry TelemetryFunc

	nGC int
}

// NewDriver returns a driver seeded at MaxSleepMs, matching the "quick
// return to normal rhythm" behavior described for a fresh worker
// (spec.md sec. 4.1).
func NewDriver(nGC int) *Driver {
	return &Driver{Sleep: NewSleepController(), WaitMs: MaxSleepMs, nGC: nGC}
}

// RunOnce executes a single iteration of the cooperative background loop
// (spec.md sec. 4.2). It returns false once the worker should stop.
func (d *Driver) RunOnce(ctx context.Context, c *Collaborators, io IOHook) bool {
	if io.TryToFreeze(ctx) {
		return true
	}

	if stopped := io.WaitInterruptibleTimeout(ctx, d.WaitMs); stopped {
		return false
	}
	if io.ShouldStop() {
		return false
	}

	c.Checkpoint.BalanceFS(ctx)

	if d.Disable {
		return true
	}

	if !c.GCLock.TryLock() {
		return true
	}

	if !c.FreeSpace.IsIdle() {
		c.GCLock.Unlock()
		d.WaitMs = d.Sleep.Increase(d.WaitMs)
		return true
	}

	if c.FreeSpace.HasEnoughInvalidBlocks() {
		d.WaitMs = d.Sleep.Decrease(d.WaitMs)
	} else {
		d.WaitMs = d.Sleep.Increase(d.WaitMs)
	}

	start := time.Now()
	status := RunReclamationLoop(ctx, c, GCBackground, d.nGC)
	if d.Telemetry != nil {
		d.Telemetry(GCBackground, status, time.Since(start))
	}

	if status == StatusNone {
		d.WaitMs = d.Sleep.NoGCSleepMs
	} else if d.WaitMs == d.Sleep.NoGCSleepMs {
		d.WaitMs = d.Sleep.MaxSleepMs
	}

	return true
}

// Run drives RunOnce until it reports the worker should stop. Callers
// normally invoke this from a dedicated goroutine.
func (d *Driver) Run(ctx context.Context, c *Collaborators, io IOHook) {
	for d.RunOnce(ctx, c, io) {
	}
}
