package segstore

import "context"

// Checkpointer is the reference Checkpoint collaborator: it simulates
// periodic checkpointing driven either by an explicit trigger
// (TriggerCheckpoint, e.g. from a test) or by the reclamation loop's
// own dirty-node-budget pressure.
type Checkpointer struct {
	s *Store
}

// NewCheckpointer builds a Checkpointer bound to s; WriteCheckpoint
// frees one section on s to make the loop's progress check observable.
func NewCheckpointer(s *Store) *Checkpointer { return &Checkpointer{s: s} }

func (c *Checkpointer) ShouldDoCheckpoint() bool {
	c.s.cpMu.Lock()
	defer c.s.cpMu.Unlock()
	return c.s.shouldCheckpoint
}

// TriggerCheckpoint arms ShouldDoCheckpoint/CpLock for the next
// reclamation pass, e.g. once a caller decides dirty-node pressure is
// high enough to force one.
func (c *Checkpointer) TriggerCheckpoint() {
	c.s.cpMu.Lock()
	defer c.s.cpMu.Unlock()
	c.s.shouldCheckpoint = true
}

func (c *Checkpointer) CpLock() { c.s.cpMu.Lock() }

func (c *Checkpointer) CpUnlock() { c.s.cpMu.Unlock() }

func (c *Checkpointer) BlockOperations(_ context.Context) error {
	return nil
}

// WriteCheckpoint flushes dirty node pages, reclaims one section's
// worth of free space, clears the pending-checkpoint flag, and releases
// cp_mutex (taken either here, if no reclaimer took it first via
// CpLock, or by the blocked reclaimer that is the caller's reason for
// invoking WriteCheckpoint at all).
func (c *Checkpointer) WriteCheckpoint(ctx context.Context, blocked bool) error {
	if !blocked {
		c.s.cpMu.Lock()
	}
	defer c.s.cpMu.Unlock()

	if err := c.s.SyncNodePages(ctx); err != nil {
		return err
	}

	c.s.shouldCheckpoint = false
	c.s.ReclaimSection()
	return nil
}

func (c *Checkpointer) BalanceFS(_ context.Context) {}
