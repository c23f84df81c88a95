package webui

import (
	"sync"
	"time"
)

const sessionIdleTTL = time.Hour

// Message is one chat transcript entry. Weather is set only when the answer
// carried a successful weather lookup.
type Message struct {
	Text    string
	IsUser  bool
	At      time.Time
	Weather *string
}

type session struct {
	transcripts map[uint][]Message
	lastSeen    time.Time
}

// SessionStore keeps per-browser chat transcripts keyed by the session
// cookie. All access is mutex-guarded; idle sessions are swept on use.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	clock    func() time.Time
}

func NewSessionStore() *SessionStore {
	return newSessionStore(sessionIdleTTL, time.Now)
}

func newSessionStore(ttl time.Duration, clock func() time.Time) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		clock:    clock,
	}
}

// Transcript returns a copy of the chat history for one destination.
func (s *SessionStore) Transcript(sessionID string, destinationID uint) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.touchLocked(sessionID)
	messages := current.transcripts[destinationID]
	copied := make([]Message, len(messages))
	copy(copied, messages)
	return copied
}

// Append records a transcript entry for one destination.
func (s *SessionStore) Append(sessionID string, destinationID uint, message Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.touchLocked(sessionID)
	current.transcripts[destinationID] = append(current.transcripts[destinationID], message)
}

// Clear drops the transcript for one destination.
func (s *SessionStore) Clear(sessionID string, destinationID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.touchLocked(sessionID)
	delete(current.transcripts, destinationID)
}

// Drop removes transcripts for destinations that no longer exist.
func (s *SessionStore) Drop(destinationID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, current := range s.sessions {
		delete(current.transcripts, destinationID)
	}
}

func (s *SessionStore) touchLocked(sessionID string) *session {
	now := s.clock()
	s.sweepLocked(now)

	current, ok := s.sessions[sessionID]
	if !ok {
		current = &session{transcripts: make(map[uint][]Message)}
		s.sessions[sessionID] = current
	}
	current.lastSeen = now
	return current
}

func (s *SessionStore) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.ttl)
	for id, current := range s.sessions {
		if current.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
