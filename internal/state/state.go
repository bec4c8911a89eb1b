package state

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"sentiment-dashboard/internal/service"
)

// Session is the per-visitor context: one immutable dataset and one
// conversation, created together and dropped together.
type Session struct {
	ID           uuid.UUID
	Dataset      *service.Dataset
	Conversation *service.Conversation
	CreatedAt    time.Time

	lastSeen time.Time
}

// Store holds live sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	limit    int
	now      func() time.Time
}

// NewStore creates a store. Sessions idle for longer than ttl are dropped
// the next time a session is created; a zero ttl keeps them forever. At most
// limit sessions are held, the least recently seen making room for a new
// one; a zero limit leaves the store unbounded.
func NewStore(ttl time.Duration, limit int) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		limit:    limit,
		now:      time.Now,
	}
}

// Create registers a new session for the dataset and conversation.
func (s *Store) Create(ds *service.Dataset, conv *service.Conversation) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	for s.limit > 0 && len(s.sessions) >= s.limit {
		s.dropLocked(s.oldestLocked())
	}

	sess := &Session{
		ID:           uuid.New(),
		Dataset:      ds,
		Conversation: conv,
		CreatedAt:    now,
		lastSeen:     now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Get looks a session up by its string id and marks it as seen.
func (s *Store) Get(id string) (*Session, bool) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if s.expired(sess, s.now()) {
		s.dropLocked(sess)
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess, true
}

// Delete ends a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	key, err := uuid.Parse(id)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return false
	}
	s.dropLocked(sess)
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

func (s *Store) expireLocked(now time.Time) {
	for _, sess := range s.sessions {
		if s.expired(sess, now) {
			s.dropLocked(sess)
		}
	}
}

func (s *Store) oldestLocked() *Session {
	var oldest *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldest = sess
		}
	}
	return oldest
}

func (s *Store) dropLocked(sess *Session) {
	if sess.Conversation != nil {
		sess.Conversation.Close()
	}
	delete(s.sessions, sess.ID)
}
