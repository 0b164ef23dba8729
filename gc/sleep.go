package gc

// SleepController implements the background driver's adaptive wait time
// (spec.md sec. 4.1). It holds no state of its own: wait_ms lives on the
// driver, and increase/decrease are pure clamped transforms so they can
// be unit-tested without any collaborator wiring.
type SleepController struct {
	MinSleepMs  int64
	MaxSleepMs  int64
	NoGCSleepMs int64
}

// NewSleepController returns a controller using the package defaults.
func NewSleepController() *SleepController {
	return &SleepController{
		MinSleepMs:  MinSleepMs,
		MaxSleepMs:  MaxSleepMs,
		NoGCSleepMs: NoGCSleepMs,
	}
}

// Increase doubles waitMs, clamped to MaxSleepMs.
func (s *SleepController) Increase(waitMs int64) int64 {
	w := waitMs * 2
	if w > s.MaxSleepMs {
		w = s.MaxSleepMs
	}
	return w
}

// Decrease halves waitMs, clamped to MinSleepMs.
func (s *SleepController) Decrease(waitMs int64) int64 {
	w := waitMs / 2
	if w < s.MinSleepMs {
		w = s.MinSleepMs
	}
	return w
}
