package targets

import (
	"math/rand"
	"time"
)

const (
	DefaultLifetime = 1000 * time.Millisecond
	NoCell          = -1
)

type Options struct {
	// Lifetime before an unhit target expires. Zero disables expiry.
	Lifetime time.Duration
	// AvoidRepeat keeps Show from reusing the previous cell while another is free.
	AvoidRepeat bool
	// Class marks the occupied cell (board.ClassGoblin or board.ClassActive).
	Class string
	Rand  *rand.Rand
	// OnExpire is called from the timer goroutine with the generation that
	// expired. The owner takes its lock and calls Expire(gen).
	OnExpire func(gen int)
}
