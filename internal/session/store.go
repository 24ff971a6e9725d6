package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sweepInterval = time.Minute

// Store holds live sessions and evicts idle ones.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(id string)
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// OnEvict registers fn to run after a session is deleted or expires.
func (st *Store) OnEvict(fn func(id string)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.onEvict = fn
}

// Create starts an empty session owned by ownerID.
func (st *Store) Create(ownerID int64, targetLanguage string) *Session {
	s := newSession(uuid.New().String(), ownerID, targetLanguage, st.now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	log.Printf("[session] created %s for user %d", s.ID, ownerID)
	return s
}

// Get returns the session and marks it used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(st.now())
	return s, nil
}

// List returns the sessions owned by ownerID, or all sessions when ownerID
// is zero.
func (st *Store) List(ownerID int64) []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := []*Session{}
	for _, s := range st.sessions {
		if ownerID == 0 || s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	evict := st.onEvict
	st.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if evict != nil {
		evict(id)
	}
	log.Printf("[session] deleted %s", id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	var expired []string
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, id)
			delete(st.sessions, id)
		}
	}
	evict := st.onEvict
	st.mu.Unlock()

	for _, id := range expired {
		if evict != nil {
			evict(id)
		}
	}
	if len(expired) > 0 {
		log.Printf("[session] expired %d idle sessions", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done.
func (st *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
