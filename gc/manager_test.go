package gc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_F2fsGC_ForegroundBlocksOnLock(t *testing.T) {
	c, _, gcLock := baseCollaborators()
	m := BuildGCManager(c, &fakeIOHook{}, 1)

	status := m.F2fsGC(context.Background(), 1)

	assert.Equal(t, StatusNone, status)
	assert.True(t, gcLock.unlockCalled, "F2fsGC must release the lock it took")
}

func TestManager_SetTelemetry_ObservesForegroundAndWiresDriver(t *testing.T) {
	c, _, _ := baseCollaborators()
	m := BuildGCManager(c, &fakeIOHook{}, 1)

	var gotType GCType
	called := 0
	m.SetTelemetry(func(gcType GCType, status ReclaimStatus, elapsed time.Duration) {
		called++
		gotType = gcType
	})

	m.F2fsGC(context.Background(), 1)

	assert.Equal(t, 1, called)
	assert.Equal(t, GCForeground, gotType)
	assert.NotNil(t, m.Driver.Telemetry, "SetTelemetry must also wire the background driver")
}

func TestManager_StartStopGCThread(t *testing.T) {
	c, _, _ := baseCollaborators()
	io := &fakeIOHook{stopped: true} // worker exits on its first wait
	m := BuildGCManager(c, io, 1)

	m.StartGCThread(context.Background())
	time.Sleep(10 * time.Millisecond)
	m.StopGCThread()

	DestroyGCManager(m)
}
