package sessions

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"whackgoblin/internal/broadcast"
	"whackgoblin/internal/events"
	"whackgoblin/internal/gamedata"
	"whackgoblin/internal/metrics"
	"whackgoblin/internal/timers"
	"whackgoblin/internal/wshub"
)

const DefaultTTL = 1 * time.Hour

const sweepInterval = 5 * time.Minute

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      gamedata.Config
	sched    timers.Scheduler
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewStore(cfg gamedata.Config, sched timers.Scheduler, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		sched:    sched,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.sweepStale()
	return s
}

func (s *Store) Create() *Session {
	bus := events.NewBus()
	hub := wshub.NewHub()
	now := s.sched.Now()
	sess := &Session{
		ID:          uuid.New().String(),
		Game:        gamedata.NewGame(s.cfg, s.sched, bus),
		Broadcaster: broadcast.NewBroadcaster(bus, hub),
		Hub:         hub,
		CreatedAt:   now,
		lastSeen:    now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()
	log.Printf("[Session] Created %s\n", sess.ID)
	return sess
}

// Get returns the session and marks it as seen, or nil.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	sess := s.sessions[id]
	s.mu.Unlock()
	if sess != nil {
		sess.Touch(s.sched.Now())
	}
	return sess
}

// Touch marks sess as active now. Hosts call it for traffic that does not
// go through Get, such as websocket messages.
func (s *Store) Touch(sess *Session) {
	sess.Touch(s.sched.Now())
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.Game.Close()
		metrics.ActiveSessions.Dec()
	}
}

func (s *Store) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	return list
}

// Sweep closes and removes sessions idle for longer than the TTL.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen()) > s.ttl {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Game.Close()
		metrics.ActiveSessions.Dec()
		log.Printf("[Session] Swept %s\n", sess.ID)
	}
	return len(stale)
}

// Close stops the sweeper and closes every session.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	for _, sess := range s.List() {
		s.Delete(sess.ID)
	}
}

func (s *Store) sweepStale() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(s.sched.Now())
		}
	}
}
