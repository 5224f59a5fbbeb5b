package targets

import (
	"math/rand"
	"time"

	"whackgoblin/internal/board"
	"whackgoblin/internal/timers"
)

// Target is the goblin (or gnome) that occupies at most one cell of a board.
// It is not safe for concurrent use.
type Target struct {
	board *board.Board
	sched timers.Scheduler
	opts  Options
	rng   *rand.Rand

	cell    int
	last    int
	visible bool
	timer   timers.Timer
	gen     int
	shownAt time.Time
	moves   int
}

func New(b *board.Board, sched timers.Scheduler, opts Options) *Target {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Target{
		board: b,
		sched: sched,
		opts:  opts,
		rng:   rng,
		cell:  NoCell,
		last:  NoCell,
	}
}

func (t *Target) Visible() bool { return t.visible }

// Cell is the occupied index, or NoCell when hidden.
func (t *Target) Cell() int { return t.cell }

// Generation identifies the current appearance.
func (t *Target) Generation() int { return t.gen }

func (t *Target) ShownAt() time.Time { return t.shownAt }

func (t *Target) Moves() int { return t.moves }

// Show places the target in a random empty cell and arms the expiry timer.
// It returns false if the target is already visible or there is no room.
func (t *Target) Show() bool {
	if t.visible {
		return false
	}
	empty := t.board.EmptyCells()
	if len(empty) == 0 {
		return false
	}
	if t.opts.AvoidRepeat && t.last != NoCell && len(empty) > 1 {
		filtered := empty[:0:0]
		for _, c := range empty {
			if c.Index != t.last {
				filtered = append(filtered, c)
			}
		}
		empty = filtered
	}

	cell := empty[t.rng.Intn(len(empty))]
	t.place(cell.Index)

	if t.opts.Lifetime > 0 {
		gen := t.gen
		t.timer = t.sched.AfterFunc(t.opts.Lifetime, func() {
			if t.opts.OnExpire != nil {
				t.opts.OnExpire(gen)
			}
		})
	}
	return true
}

// Move relocates the target to a random cell other than the current one.
// The first call places it anywhere. Moved targets never expire.
func (t *Target) Move() (int, bool) {
	n := t.board.Len()
	if n == 0 || (t.visible && n == 1) {
		return t.cell, false
	}
	var next int
	if t.visible {
		// Draw from n-1 slots and skip over the current cell.
		next = t.rng.Intn(n - 1)
		if next >= t.cell {
			next++
		}
	} else {
		next = t.rng.Intn(n)
	}
	t.Hide()
	t.place(next)
	t.moves++
	return next, true
}

func (t *Target) place(i int) {
	t.board.Occupy(i, t.opts.Class)
	t.cell = i
	t.visible = true
	t.gen++
	t.shownAt = t.sched.Now()
}

// Hide vacates the cell and cancels the expiry timer.
func (t *Target) Hide() {
	if !t.visible {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.board.Vacate(t.cell)
	t.last = t.cell
	t.cell = NoCell
	t.visible = false
}

// Hit hides a visible target and reports whether there was one to hit.
func (t *Target) Hit() bool {
	if !t.visible {
		return false
	}
	t.Hide()
	return true
}

// Expire hides the target if gen is still the live appearance. A stale
// generation means the timer raced a hit or hide and is ignored.
func (t *Target) Expire(gen int) bool {
	if !t.visible || gen != t.gen {
		return false
	}
	t.Hide()
	return true
}
