package timers

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. Callbacks run on their own goroutine
// in production, so callers must do their own locking.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type clockScheduler struct {
	c clock.Clock
}

// New wraps a clock. Pass clock.New() for wall time.
func New(c clock.Clock) Scheduler {
	return &clockScheduler{c: c}
}

// Real returns a scheduler backed by wall-clock time.
func Real() Scheduler {
	return New(clock.New())
}

func (s *clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return s.c.AfterFunc(d, f)
}

func (s *clockScheduler) Now() time.Time {
	return s.c.Now()
}
