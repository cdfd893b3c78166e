// Package memory is an in-process descstore.Store for single-node servers
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nwbridge/rfc-server-go/descstore"
	"github.com/nwbridge/rfc-server-go/rfc"
)

const defaultTTL = 15 * time.Minute

type entry struct {
	desc      rfc.FunctionDescription
	expiresAt time.Time
}

// Store is an in-memory descstore.Store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is replaceable for expiry tests.
	now func() time.Time
}

var _ descstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		entries: map[string]entry{},
		now:     time.Now,
	}
}

func key(destination, name string) string {
	return destination + "\x00" + name
}

func (s *Store) Get(ctx context.Context, destination, name string) (rfc.FunctionDescription, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key(destination, name)]
	s.mu.RUnlock()
	if !ok {
		return rfc.FunctionDescription{}, false, nil
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key(destination, name))
		s.mu.Unlock()
		return rfc.FunctionDescription{}, false, nil
	}
	return e.desc, true, nil
}

func (s *Store) Set(ctx context.Context, destination, name string, desc rfc.FunctionDescription, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key(destination, name)] = entry{desc: desc, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *Store) Delete(ctx context.Context, destination, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key(destination, name))
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]entry{}
	return nil
}
