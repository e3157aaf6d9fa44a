package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Scheduler arms at most one poll deadline at a time. The fire callback
// receives the session id the timer was armed with; the coordinator's
// identity guard makes a stale fire a no-op, so a timer that loses the race
// to a manual end is harmless.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	fire  func(sessionID uuid.UUID)
}

// NewScheduler returns a scheduler invoking fire when a deadline elapses.
func NewScheduler(fire func(sessionID uuid.UUID)) *Scheduler {
	return &Scheduler{fire: fire}
}

// Arm schedules the deadline for sessionID, replacing any pending timer.
func (s *Scheduler) Arm(sessionID uuid.UUID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, func() {
		s.fire(sessionID)
	})
}

// Disarm stops the pending deadline, if any.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
