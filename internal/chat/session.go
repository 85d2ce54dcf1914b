package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/model"
)

// Conversation is the append-only turn log for one session. Appends
// and clears are serialized; reads hand out copies so callers never
// observe in-place mutation.
type Conversation struct {
	mu       sync.Mutex
	turns    []model.Turn
	maxTurns int
}

func NewConversation(maxTurns int) *Conversation {
	return &Conversation{maxTurns: maxTurns}
}

func (c *Conversation) Append(turn model.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
	if c.maxTurns > 0 && len(c.turns) > c.maxTurns {
		overflow := len(c.turns) - c.maxTurns
		c.turns = append([]model.Turn(nil), c.turns[overflow:]...)
	}
}

// Tail returns the last n turns, oldest first.
func (c *Conversation) Tail(n int) []model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		return nil
	}
	start := len(c.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]model.Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

func (c *Conversation) All() []model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

type session struct {
	conv       *Conversation
	lastActive time.Time
}

// SessionManager owns every live conversation, keyed by opaque ids
// handed to clients via cookie. Idle sessions are dropped by Sweep.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	maxTurns int
	now      func() time.Time
}

func NewSessionManager(cfg config.SessionConfig) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*session),
		ttl:      time.Duration(cfg.TTLMinutes) * time.Minute,
		maxTurns: cfg.MaxTurns,
		now:      time.Now,
	}
}

// GetOrCreate returns the conversation for id, minting a fresh session
// when id is empty or unknown. The returned id is what the client
// should carry forward.
func (m *SessionManager) GetOrCreate(id string) (string, *Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if sess, ok := m.sessions[id]; ok {
			sess.lastActive = m.now()
			return id, sess.conv
		}
	}
	newID := uuid.NewString()
	sess := &session{conv: NewConversation(m.maxTurns), lastActive: m.now()}
	m.sessions[newID] = sess
	return newID, sess.conv
}

// Get returns the conversation for id without creating one.
func (m *SessionManager) Get(id string) (*Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastActive = m.now()
	return sess.conv, true
}

// Sweep drops sessions idle longer than the ttl and reports how many
// were removed.
func (m *SessionManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	removed := 0
	for id, sess := range m.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Stats reports the number of live sessions and the total stored
// turns across them.
func (m *SessionManager) Stats() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totalTurns := 0
	for _, sess := range m.sessions {
		totalTurns += sess.conv.Len()
	}
	return len(m.sessions), totalTurns
}
