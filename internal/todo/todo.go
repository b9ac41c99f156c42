// Package todo is the reference command set: a small task manager whose
// commands exercise every part of the result envelope (validation,
// confidence, warnings, alternatives, suggestions) against a pluggable
// store.
package todo

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Priority orders todos by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p Priority) rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Todo is one task.
type Todo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Filter narrows and orders a listing. Zero values mean "no constraint".
type Filter struct {
	Completed *bool
	Priority  Priority
	Search    string
	SortBy    string // title, priority, createdAt (default), updatedAt
	SortOrder string // asc, desc (default)
	Limit     int
	Offset    int
}

// Update carries partial changes; nil fields are left untouched.
type Update struct {
	Title       *string
	Description *string
	Priority    *Priority
	Completed   *bool
}

// PriorityStats counts todos per priority level.
type PriorityStats struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Stats summarizes a store.
type Stats struct {
	Total          int           `json:"total"`
	Completed      int           `json:"completed"`
	Pending        int           `json:"pending"`
	ByPriority     PriorityStats `json:"byPriority"`
	CompletionRate float64       `json:"completionRate"`
}

// Store persists todos. Implementations must be safe for concurrent use.
type Store interface {
	Create(ctx context.Context, title, description string, priority Priority) (Todo, error)
	Get(ctx context.Context, id string) (Todo, bool, error)
	List(ctx context.Context, f Filter) ([]Todo, error)
	Update(ctx context.Context, id string, u Update) (Todo, bool, error)
	Toggle(ctx context.Context, id string) (Todo, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) (int, error)
	Close() error
}

// applyFilter implements filtering, sorting and pagination over an
// unordered snapshot. Both store backends funnel through it so listing
// semantics never diverge between memory and sqlite.
func applyFilter(todos []Todo, f Filter) []Todo {
	filtered := todos[:0:0]
	search := strings.ToLower(f.Search)
	for _, t := range todos {
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		filtered = append(filtered, t)
	}

	less := func(a, b Todo) bool {
		switch f.SortBy {
		case "title":
			return a.Title < b.Title
		case "priority":
			return a.Priority.rank() < b.Priority.rank()
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	desc := f.SortOrder != "asc"
	sort.SliceStable(filtered, func(i, j int) bool {
		if desc {
			return less(filtered[j], filtered[i])
		}
		return less(filtered[i], filtered[j])
	})

	if f.Offset > 0 {
		if f.Offset >= len(filtered) {
			return []Todo{}
		}
		filtered = filtered[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(filtered) {
		filtered = filtered[:f.Limit]
	}
	return filtered
}

func computeStats(todos []Todo) Stats {
	var s Stats
	s.Total = len(todos)
	for _, t := range todos {
		if t.Completed {
			s.Completed++
		}
		switch t.Priority {
		case PriorityLow:
			s.ByPriority.Low++
		case PriorityMedium:
			s.ByPriority.Medium++
		case PriorityHigh:
			s.ByPriority.High++
		}
	}
	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total)
	}
	return s
}
