package gc

import "context"

// checkpointGate is the per-block checkpoint-pressure check shared by the
// node and data reclaimers (spec.md sec. 4.4, sec. 4.5, sec. 9 "blocking
// handshake"). When it fires with StatusBlocked, cp_mutex is already held
// and BlockOperations has already run; the caller must return the status
// unchanged so the reclamation loop can checkpoint and retry. If
// BlockOperations fails, cp_mutex is released again and it fires with
// StatusError.
func checkpointGate(ctx context.Context, cp Checkpoint) (status ReclaimStatus, blocked bool) {
	if !cp.ShouldDoCheckpoint() {
		return StatusNone, false
	}
	cp.CpLock()
	if err := cp.BlockOperations(ctx); err != nil {
		cp.CpUnlock()
		return StatusError, true
	}
	return StatusBlocked, true
}

// checkValidMap re-checks a single block's validity under sentry_lock,
// the lock segment-entry state shares with victim selection (spec.md
// sec. 5, lock order #3; sec. 9 "races with concurrent invalidation
// resolve to skip").
func checkValidMap(segMgr SegmentManager, entry *SegEntry, off int) bool {
	segMgr.SentryLock()
	defer segMgr.SentryUnlock()
	return entry.ValidMap.Test(off)
}
