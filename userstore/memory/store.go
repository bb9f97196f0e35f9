// Package memory provides an in-process authcore.UserStore for tests, demos
// and single-binary deployments that keep their users in configuration.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/MrEthical07/authcore"
)

var ErrDuplicate = errors.New("user already exists")

// Store is a concurrency-safe map of principals keyed by id and username.
type Store struct {
	mu         sync.RWMutex
	byID       map[int64]authcore.Principal
	byUsername map[string]int64
	err        error
}

var _ authcore.UserStore = (*Store)(nil)

func New() *Store {
	return &Store{
		byID:       make(map[int64]authcore.Principal),
		byUsername: make(map[string]int64),
	}
}

// Add inserts p. It fails if the id or username is already taken.
func (s *Store) Add(p authcore.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := s.byUsername[p.Username]; ok {
		return ErrDuplicate
	}
	s.byID[p.ID] = p
	s.byUsername[p.Username] = p.ID
	return nil
}

// Put inserts or replaces p.
func (s *Store) Put(p authcore.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[p.ID]; ok && old.Username != p.Username {
		delete(s.byUsername, old.Username)
	}
	s.byID[p.ID] = p
	s.byUsername[p.Username] = p.ID
}

func (s *Store) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[id]; ok {
		delete(s.byUsername, old.Username)
		delete(s.byID, id)
	}
}

// FailWith makes every lookup return err until called again with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Store) FindByID(ctx context.Context, id int64) (*authcore.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.byID[id]
	if !ok {
		return nil, authcore.ErrUserNotFound
	}
	return &p, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*authcore.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	id, ok := s.byUsername[username]
	if !ok {
		return nil, authcore.ErrUserNotFound
	}
	p := s.byID[id]
	return &p, nil
}
