package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned for unknown or expired session IDs
var ErrSessionNotFound = errors.New("session not found")

// MCPSession represents an active MCP client connection
type MCPSession struct {
	ID              string
	UserID          string // From JWT sub claim
	ProtocolVersion string
	ClientName      string
	CreatedAt       time.Time
	LastSeen        time.Time
}

// SessionManager manages MCP sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*MCPSession // sessionID -> session
	ttl      time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewSessionManager creates a session manager; sessions idle longer than ttl expire
func NewSessionManager(ttl time.Duration) *SessionManager {
	mgr := &SessionManager{
		sessions: make(map[string]*MCPSession),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}

	go mgr.cleanupLoop()

	return mgr
}

func newID() string {
	return uuid.New().String()
}

// CreateSession creates a new MCP session for a user
func (sm *SessionManager) CreateSession(userID, protocolVersion, clientName string) *MCPSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	session := &MCPSession{
		ID:              newID(),
		UserID:          userID,
		ProtocolVersion: protocolVersion,
		ClientName:      clientName,
		CreatedAt:       now,
		LastSeen:        now,
	}
	sm.sessions[session.ID] = session

	log.Debug().
		Str("sessionId", session.ID).
		Str("userId", userID).
		Msg("Created MCP session")

	return session
}

// GetSession returns a copy of the session, or ErrSessionNotFound when it is
// unknown or past its TTL
func (sm *SessionManager) GetSession(sessionID string) (MCPSession, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists || time.Since(session.LastSeen) > sm.ttl {
		return MCPSession{}, ErrSessionNotFound
	}
	return *session, nil
}

// UpdateLastSeen updates the last seen time for a session
func (sm *SessionManager) UpdateLastSeen(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, exists := sm.sessions[sessionID]; exists {
		session.LastSeen = time.Now()
	}
}

// DeleteSession removes a session; it reports whether one existed
func (sm *SessionManager) DeleteSession(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	_, exists := sm.sessions[sessionID]
	delete(sm.sessions, sessionID)

	if exists {
		log.Debug().Str("sessionId", sessionID).Msg("Deleted MCP session")
	}
	return exists
}

// Count returns the number of tracked sessions, expired ones included
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Close stops the cleanup loop
func (sm *SessionManager) Close() {
	sm.once.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stop:
			return
		case now := <-ticker.C:
			if expired := sm.removeExpired(now); expired > 0 {
				log.Info().Int("count", expired).Msg("Cleaned up expired MCP sessions")
			}
		}
	}
}

// removeExpired deletes sessions idle longer than the TTL as of now
func (sm *SessionManager) removeExpired(now time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	expired := 0
	for id, session := range sm.sessions {
		if now.Sub(session.LastSeen) > sm.ttl {
			delete(sm.sessions, id)
			expired++
		}
	}
	return expired
}
