// Package auth decides which Telegram users may talk to the bot. Unknown
// users can request access, which the admin approves or denies.
package auth

import (
	"errors"
	"sort"
	"sync"
)

var ErrNoRequest = errors.New("no access request from this user")

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Repository persists the allowlist.
type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID int64) error
}

type Service struct {
	repo    Repository
	adminID int64

	mu       sync.RWMutex
	allowed  map[int64]User
	requests map[int64]User
}

// NewWithRepo loads the persisted allowlist and merges initial ids into it.
// The admin is always allowed.
func NewWithRepo(repo Repository, initial []int64, adminID int64) (*Service, error) {
	s := &Service{
		repo:     repo,
		adminID:  adminID,
		allowed:  make(map[int64]User),
		requests: make(map[int64]User),
	}
	if repo != nil {
		users, err := repo.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			s.allowed[u.ID] = u
		}
	}
	for _, id := range initial {
		if _, ok := s.allowed[id]; !ok {
			s.allowed[id] = User{ID: id}
		}
	}
	if adminID != 0 {
		if _, ok := s.allowed[adminID]; !ok {
			s.allowed[adminID] = User{ID: adminID}
		}
	}
	return s, nil
}

func (s *Service) IsAllowed(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.allowed[userID]
	return ok
}

func (s *Service) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

func (s *Service) AdminID() int64 { return s.adminID }

// Request records that user asked for access. It reports false when the user
// is already allowed or has already asked.
func (s *Service) Request(user User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allowed[user.ID]; ok {
		return false
	}
	if _, ok := s.requests[user.ID]; ok {
		return false
	}
	s.requests[user.ID] = user
	return true
}

// Approve moves a requesting user onto the allowlist.
func (s *Service) Approve(userID int64) (User, error) {
	s.mu.Lock()
	u, ok := s.requests[userID]
	if ok {
		delete(s.requests, userID)
	}
	s.mu.Unlock()
	if !ok {
		return User{}, ErrNoRequest
	}
	return u, s.Upsert(u)
}

// Deny forgets a request.
func (s *Service) Deny(userID int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.requests[userID]
	if !ok {
		return User{}, ErrNoRequest
	}
	delete(s.requests, userID)
	return u, nil
}

func (s *Service) Upsert(user User) error {
	s.mu.Lock()
	s.allowed[user.ID] = user
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Upsert(user)
	}
	return nil
}

func (s *Service) Remove(userID int64) error {
	s.mu.Lock()
	delete(s.allowed, userID)
	s.mu.Unlock()
	if s.repo != nil {
		return s.repo.Remove(userID)
	}
	return nil
}

// List returns the allowlist ordered by id.
func (s *Service) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.allowed))
	for _, u := range s.allowed {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Requests returns the users waiting for approval, ordered by id.
func (s *Service) Requests() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.requests))
	for _, u := range s.requests {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
