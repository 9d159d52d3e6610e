package captcha

import (
	"sync"
	"time"
)

// Challenge is a stored captcha answer. Code is kept lower-cased.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
}

func (c Challenge) expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Store holds issued challenges until they are consumed or swept.
type Store interface {
	Put(id string, c Challenge)
	// Take removes the challenge and returns it; a second Take for the same
	// id always misses.
	Take(id string) (Challenge, bool)
	Sweep(now time.Time) int
	Len() int
}

type MemoryStore struct {
	challenges map[string]Challenge
	mu         sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]Challenge),
	}
}

func (s *MemoryStore) Put(id string, c Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[id] = c
}

func (s *MemoryStore) Take(id string) (Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	if ok {
		delete(s.challenges, id)
	}
	return c, ok
}

func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.challenges {
		if c.expired(now) {
			delete(s.challenges, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.challenges)
}
