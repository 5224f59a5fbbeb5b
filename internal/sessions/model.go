package sessions

import (
	"sync"
	"time"

	"whackgoblin/internal/broadcast"
	"whackgoblin/internal/gamedata"
	"whackgoblin/internal/wshub"
)

// Session is one player's game together with the channels that render it.
type Session struct {
	ID          string
	Game        *gamedata.Game
	Broadcaster *broadcast.Broadcaster
	Hub         *wshub.Hub
	CreatedAt   time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
