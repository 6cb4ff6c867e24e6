package checkout

import (
	"sync"
	"time"
)

// Store holds in-flight checkout sessions keyed by customer. Sessions
// are scoped to one customer, so the store needs no cross-customer
// coordination; an abandoned session simply ages out.
type Store interface {
	Get(userID uint) (Session, bool)
	Put(userID uint, s Session)
	Delete(userID uint)
}

type storedSession struct {
	session  Session
	lastSeen time.Time
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[uint]*storedSession
	ttl      time.Duration
}

// NewMemoryStore returns an in-process session store whose entries
// expire after ttl of inactivity.
func NewMemoryStore(ttl time.Duration) Store {
	s := &memoryStore{
		sessions: make(map[uint]*storedSession),
		ttl:      ttl,
	}
	go s.cleanup()
	return s
}

func (m *memoryStore) Get(userID uint) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if time.Since(entry.lastSeen) > m.ttl {
		delete(m.sessions, userID)
		return Session{}, false
	}
	entry.lastSeen = time.Now()
	return entry.session, true
}

func (m *memoryStore) Put(userID uint, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = &storedSession{session: s, lastSeen: time.Now()}
}

func (m *memoryStore) Delete(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryStore) cleanup() {
	for {
		time.Sleep(time.Minute)

		m.mu.Lock()
		for userID, entry := range m.sessions {
			if time.Since(entry.lastSeen) > m.ttl {
				delete(m.sessions, userID)
			}
		}
		m.mu.Unlock()
	}
}
