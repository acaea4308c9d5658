package chat

import (
	"sync"
	"time"

	"sheetgenie/internal/dispatch"
	"sheetgenie/internal/sheet"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of a session's history.
type Message struct {
	ID        int              `json:"id"`
	Sender    Sender           `json:"sender"`
	Text      string           `json:"text"`
	Timestamp time.Time        `json:"timestamp"`
	Result    *dispatch.Result `json:"function_result,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Session is the state of one chat panel: its append-only history and the
// table turns run against. turn serialises HandleTurn calls; mu guards the
// fields so readers never wait on a model round trip.
type Session struct {
	id      string
	created time.Time

	turn sync.Mutex

	mu       sync.RWMutex
	messages []Message
	nextID   int
	table    *sheet.Table
	updated  time.Time
}

// NewSession returns an empty session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{id: id, created: now, updated: now, nextID: 1}
}

func (s *Session) ID() string {
	return s.id
}

// Messages returns a copy of the history.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Table returns the session's current table, or nil when none was set.
func (s *Session) Table() *sheet.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// SetTable replaces the table the next turn runs against.
func (s *Session) SetTable(t *sheet.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	s.updated = time.Now()
}

// Reset clears the history. The table is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.nextID = 1
	s.updated = time.Now()
}

// UpdatedAt reports the last time the session changed.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

func (s *Session) append(msg Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextID
	s.nextID++
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, msg)
	s.updated = msg.Timestamp
	return msg
}
