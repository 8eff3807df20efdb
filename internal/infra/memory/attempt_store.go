package memory

import (
	"context"
	"sort"
	"sync"

	"quizhub-attempt-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
// Every operation holds the store lock, so a conditional update is an
// atomic compare-and-set on the attempt status.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
	}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) ConditionalUpdate(_ context.Context, attemptID string, expected domain.AttemptStatus, c domain.Completion) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if attempt.Status != expected {
		return domain.Attempt{}, domain.ErrPreconditionFailed
	}
	updated := attempt.Complete(c)
	s.attempts[attemptID] = cloneAttempt(updated)
	return cloneAttempt(updated), nil
}

func (s *AttemptStore) ListByUser(_ context.Context, userID string, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	s.mu.RLock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.UserID == userID && filter.Matches(attempt) {
			out = append(out, cloneAttempt(attempt))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// cloneAttempt keeps callers from mutating stored slices and timestamps.
func cloneAttempt(a domain.Attempt) domain.Attempt {
	answers := make([]domain.GradedAnswer, len(a.Answers))
	copy(answers, a.Answers)
	a.Answers = answers
	if a.CompletedAt != nil {
		completedAt := *a.CompletedAt
		a.CompletedAt = &completedAt
	}
	return a
}
