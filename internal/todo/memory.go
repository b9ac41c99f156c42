package todo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps todos in a map. It is the default backend and the
// one tests use.
type MemoryStore struct {
	mu    sync.RWMutex
	todos map[string]Todo
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos: make(map[string]Todo),
		now:   time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, title, description string, priority Priority) (Todo, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	now := s.now().UTC()
	t := Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.todos[t.ID] = t
	s.mu.Unlock()
	return t, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Todo, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.todos[id]
	return t, ok, nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Todo, error) {
	s.mu.RLock()
	snapshot := make([]Todo, 0, len(s.todos))
	for _, t := range s.todos {
		snapshot = append(snapshot, t)
	}
	s.mu.RUnlock()
	return applyFilter(snapshot, f), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, u Update) (Todo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return Todo{}, false, nil
	}
	now := s.now().UTC()
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Completed != nil {
		setCompleted(&t, *u.Completed, now)
	}
	t.UpdatedAt = now
	s.todos[id] = t
	return t, true, nil
}

func (s *MemoryStore) Toggle(_ context.Context, id string) (Todo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return Todo{}, false, nil
	}
	now := s.now().UTC()
	setCompleted(&t, !t.Completed, now)
	t.UpdatedAt = now
	s.todos[id] = t
	return t, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[id]; !ok {
		return false, nil
	}
	delete(s.todos, id)
	return true, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	todos, err := s.List(ctx, Filter{})
	if err != nil {
		return Stats{}, err
	}
	return computeStats(todos), nil
}

func (s *MemoryStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.todos)
	s.todos = make(map[string]Todo)
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

// setCompleted flips the completed flag, maintaining the completedAt
// invariant: set exactly when the todo transitions to done.
func setCompleted(t *Todo, completed bool, now time.Time) {
	if completed && !t.Completed {
		t.CompletedAt = &now
	} else if !completed {
		t.CompletedAt = nil
	}
	t.Completed = completed
}
