// Package iostat answers "is this machine busy right now" for the
// background collector's idle gate, using host CPU and disk-I/O
// counters instead of a filesystem-internal heuristic.
package iostat

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
)

// Thresholds controls how busy the host may be before IsIdle reports
// false.
type Thresholds struct {
	MaxCPUPercent    float64 // e.g. 70.0
	MaxDiskReadMBps  float64
	MaxDiskWriteMBps float64
}

// DefaultThresholds matches what a background housekeeping task should
// defer to: leave headroom for foreground I/O and compute.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxCPUPercent: 70, MaxDiskReadMBps: 50, MaxDiskWriteMBps: 50}
}

// Monitor samples host load on demand and reports whether it is below
// the configured thresholds. Safe for concurrent use; samples are
// cached briefly so a hot IsIdle loop doesn't hammer /proc.
type Monitor struct {
	thresholds Thresholds
	sampleTTL  time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	lastIdle  bool
	lastIO    disk.IOCountersStat
	lastIOAt  time.Time
}

// NewMonitor builds a Monitor with the given thresholds and a 2-second
// sample cache.
func NewMonitor(t Thresholds) *Monitor {
	return &Monitor{thresholds: t, sampleTTL: 2 * time.Second}
}

// IsIdle implements the FreeSpace.IsIdle half of the core's free-space
// collaborator: the background driver only starts a reclamation cycle
// when the host has spare CPU and disk bandwidth.
func (m *Monitor) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < m.sampleTTL {
		return m.lastIdle
	}

	m.lastIdle = m.sampleLocked()
	m.lastCheck = time.Now()
	return m.lastIdle
}

func (m *Monitor) sampleLocked() bool {
	pct, err := cpu.Percent(0, false)
	if err == nil && len(pct) > 0 && pct[0] > m.thresholds.MaxCPUPercent {
		return false
	}

	counters, err := disk.IOCounters()
	if err != nil || len(counters) == 0 {
		return true
	}

	var readBytes, writeBytes uint64
	for _, c := range counters {
		readBytes += c.ReadBytes
		writeBytes += c.WriteBytes
	}

	now := time.Now()
	if !m.lastIOAt.IsZero() {
		elapsed := now.Sub(m.lastIOAt).Seconds()
		if elapsed > 0 {
			readMBps := float64(readBytes-m.lastIO.ReadBytes) / elapsed / (1 << 20)
			writeMBps := float64(writeBytes-m.lastIO.WriteBytes) / elapsed / (1 << 20)
			if readMBps > m.thresholds.MaxDiskReadMBps || writeMBps > m.thresholds.MaxDiskWriteMBps {
				m.lastIO = disk.IOCountersStat{ReadBytes: readBytes, WriteBytes: writeBytes}
				m.lastIOAt = now
				return false
			}
		}
	}
	m.lastIO = disk.IOCountersStat{ReadBytes: readBytes, WriteBytes: writeBytes}
	m.lastIOAt = now
	return true
}
