package repository

import (
	"context"
	"sort"
	"sync"

	"semaphore/learning/internal/model"
)

// MemoryStore is an in-process stand-in for UserStore with the same
// whole-document semantics: reads and writes exchange deep copies.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]model.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]model.User{}}
}

func (s *MemoryStore) CreateUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return model.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return model.ErrDuplicate
		}
	}
	if user.EnrolledCourses == nil {
		user.EnrolledCourses = []model.Enrollment{}
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, userID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return user.Clone(), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user.Clone(), nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, limit int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return model.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return model.ErrDuplicate
		}
	}
	if user.EnrolledCourses == nil {
		user.EnrolledCourses = []model.Enrollment{}
	}
	s.users[user.ID] = user.Clone()
	return nil
}
