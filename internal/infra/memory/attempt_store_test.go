package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizhub-attempt-service/internal/domain"
)

func TestAttemptStoreConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	started := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	if _, err := store.Create(ctx, domain.NewAttempt("a1", "quiz-1", "u1", started)); err != nil {
		t.Fatalf("create: %v", err)
	}

	done := started.Add(time.Minute)
	updated, err := store.ConditionalUpdate(ctx, "a1", domain.StatusInProgress, domain.Completion{Score: 10, Percentage: 50, CompletedAt: done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.StatusCompleted || updated.Score != 10 {
		t.Fatalf("unexpected attempt %+v", updated)
	}

	_, err = store.ConditionalUpdate(ctx, "a1", domain.StatusInProgress, domain.Completion{Score: 20, CompletedAt: done})
	if !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	stored, _ := store.Get(ctx, "a1")
	if stored.Score != 10 {
		t.Fatalf("second update leaked: %+v", stored)
	}

	if _, err := store.ConditionalUpdate(ctx, "missing", domain.StatusInProgress, domain.Completion{}); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttemptStoreSingleWinnerUnderRace(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	_, _ = store.Create(ctx, domain.NewAttempt("a1", "quiz-1", "u1", time.Now()))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, err := store.ConditionalUpdate(ctx, "a1", domain.StatusInProgress, domain.Completion{Score: score, CompletedAt: time.Now()})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful completion, got %d", wins)
	}
}

func TestAttemptStoreListByUser(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	_, _ = store.Create(ctx, domain.NewAttempt("old", "quiz-1", "u1", base))
	_, _ = store.Create(ctx, domain.NewAttempt("new", "quiz-1", "u1", base.Add(time.Hour)))
	_, _ = store.Create(ctx, domain.NewAttempt("other", "quiz-1", "u2", base))
	_, _ = store.ConditionalUpdate(ctx, "old", domain.StatusInProgress, domain.Completion{CompletedAt: base.Add(time.Minute)})

	all, _ := store.ListByUser(ctx, "u1", domain.AttemptFilter{})
	if len(all) != 2 || all[0].ID != "new" || all[1].ID != "old" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	completed, _ := store.ListByUser(ctx, "u1", domain.AttemptFilter{Status: domain.StatusCompleted})
	if len(completed) != 1 || completed[0].ID != "old" {
		t.Fatalf("expected only completed attempt, got %+v", completed)
	}

	limited, _ := store.ListByUser(ctx, "u1", domain.AttemptFilter{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "new" {
		t.Fatalf("expected limit to keep newest, got %+v", limited)
	}
}

func TestAttemptStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	_, _ = store.Create(ctx, domain.NewAttempt("a1", "quiz-1", "u1", time.Now()))
	updated, _ := store.ConditionalUpdate(ctx, "a1", domain.StatusInProgress, domain.Completion{
		Answers:     []domain.GradedAnswer{{QuestionID: "q1", PointsEarned: 10, IsCorrect: true}},
		CompletedAt: time.Now(),
	})

	updated.Answers[0].PointsEarned = 99
	stored, _ := store.Get(ctx, "a1")
	if stored.Answers[0].PointsEarned != 10 {
		t.Fatalf("stored attempt was mutated through a returned copy")
	}
}
