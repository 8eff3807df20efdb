package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizhub-attempt-service/internal/domain"
	"quizhub-attempt-service/internal/grading"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// IncrementAttemptCount bumps the quiz's completed attempt counter.
	IncrementAttemptCount(ctx context.Context, quizID string) error
}

// AttemptStore persists attempts. ConditionalUpdate must apply the
// completion atomically and only while the attempt is in the expected
// status, returning domain.ErrPreconditionFailed otherwise.
type AttemptStore interface {
	Create(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	ConditionalUpdate(ctx context.Context, attemptID string, expected domain.AttemptStatus, c domain.Completion) (domain.Attempt, error)
	ListByUser(ctx context.Context, userID string, filter domain.AttemptFilter) ([]domain.Attempt, error)
}

// HistoryEntry is an attempt plus a summary of its quiz. Quiz is nil when
// the quiz no longer resolves.
type HistoryEntry struct {
	domain.Attempt
	Quiz *domain.QuizSummary `json:"quiz"`
}

// Stats aggregates a user's completed attempts.
type Stats struct {
	QuizzesCompleted int `json:"quizzesCompleted"`
	TotalXP          int `json:"totalXp"`
	AverageScore     int `json:"averageScore"`
	Level            int `json:"level"`
	XPToNextLevel    int `json:"xpToNextLevel"`
}

// Option configures an AttemptService.
type Option func(*AttemptService)

func WithXPPolicy(p XPPolicy) Option { return func(s *AttemptService) { s.xp = p } }

// WithElevatedRoles replaces the roles allowed to read any attempt.
func WithElevatedRoles(roles ...string) Option {
	return func(s *AttemptService) {
		s.elevated = make(map[string]struct{}, len(roles))
		for _, r := range roles {
			s.elevated[r] = struct{}{}
		}
	}
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(s *AttemptService) { s.now = now } }

func WithIDGenerator(newID func() string) Option { return func(s *AttemptService) { s.newID = newID } }

func WithLogger(log *zap.Logger) Option { return func(s *AttemptService) { s.log = log } }

// AttemptService owns the attempt lifecycle: start, submit (grade once), read.
type AttemptService struct {
	attempts AttemptStore
	quizzes  QuizRepository
	xp       XPPolicy
	elevated map[string]struct{}
	now      func() time.Time
	newID    func() string
	log      *zap.Logger
}

func NewAttemptService(attempts AttemptStore, quizzes QuizRepository, opts ...Option) *AttemptService {
	s := &AttemptService{
		attempts: attempts,
		quizzes:  quizzes,
		xp:       DefaultXPPolicy(),
		elevated: map[string]struct{}{"admin": {}},
		now:      time.Now,
		newID:    uuid.NewString,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new in-progress attempt. Several open attempts per user and
// quiz are allowed.
func (s *AttemptService) Start(ctx context.Context, quizID, userID string) (domain.Attempt, error) {
	if quizID == "" {
		return domain.Attempt{}, fmt.Errorf("%w: quiz id is required", domain.ErrInvalidInput)
	}
	if userID == "" {
		return domain.Attempt{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	if _, err := s.loadQuiz(ctx, quizID); err != nil {
		return domain.Attempt{}, err
	}

	attempt, err := s.attempts.Create(ctx, domain.NewAttempt(s.newID(), quizID, userID, s.now().UTC()))
	if err != nil {
		return domain.Attempt{}, unavailable("create attempt", err)
	}

	s.log.Info("quiz attempt started",
		zap.String("attempt_id", attempt.ID),
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID))
	return attempt, nil
}

// Submit grades the answers and completes the attempt. Preconditions are
// checked in order and nothing is written before they all hold.
func (s *AttemptService) Submit(ctx context.Context, attemptID, userID string, answers []domain.SubmittedAnswer) (domain.Attempt, error) {
	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != userID {
		return domain.Attempt{}, domain.ErrForbidden
	}
	if attempt.Status == domain.StatusCompleted {
		return domain.Attempt{}, domain.ErrAttemptCompleted
	}
	quiz, err := s.loadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Attempt{}, err
	}

	result := grading.Grade(quiz, answers)
	completion := domain.Completion{
		Answers:     result.Answers,
		Score:       result.Score,
		Percentage:  result.Percentage,
		IsPassed:    result.IsPassed,
		XPEarned:    s.xp.Award(result.IsPassed),
		CompletedAt: s.now().UTC(),
	}

	completed, err := s.attempts.ConditionalUpdate(ctx, attempt.ID, domain.StatusInProgress, completion)
	switch {
	case errors.Is(err, domain.ErrPreconditionFailed):
		// A concurrent submission won the race.
		return domain.Attempt{}, domain.ErrAttemptCompleted
	case errors.Is(err, domain.ErrAttemptNotFound):
		return domain.Attempt{}, domain.ErrAttemptNotFound
	case err != nil:
		return domain.Attempt{}, unavailable("complete attempt", err)
	}

	if err := s.quizzes.IncrementAttemptCount(ctx, attempt.QuizID); err != nil {
		s.log.Warn("failed to update quiz attempt count",
			zap.String("quiz_id", attempt.QuizID),
			zap.Error(err))
	}

	s.log.Info("quiz attempt submitted",
		zap.String("attempt_id", completed.ID),
		zap.Int("score", result.Score),
		zap.Int("total_points", result.TotalPoints),
		zap.Int("percentage", result.Percentage),
		zap.Bool("passed", result.IsPassed))
	return completed, nil
}

// Get returns an attempt to its owner or to a caller holding an elevated role.
func (s *AttemptService) Get(ctx context.Context, attemptID, userID, role string) (domain.Attempt, error) {
	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != userID && !s.isElevated(role) {
		return domain.Attempt{}, domain.ErrForbidden
	}
	return attempt, nil
}

// History lists the user's attempts, newest first.
func (s *AttemptService) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	attempts, err := s.attempts.ListByUser(ctx, userID, domain.AttemptFilter{Limit: limit})
	if err != nil {
		return nil, unavailable("list attempts", err)
	}

	summaries := make(map[string]*domain.QuizSummary)
	entries := make([]HistoryEntry, 0, len(attempts))
	for _, attempt := range attempts {
		summary, ok := summaries[attempt.QuizID]
		if !ok {
			quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
			switch {
			case errors.Is(err, domain.ErrQuizNotFound):
				summary = nil
			case err != nil:
				return nil, unavailable("load quiz", err)
			default:
				qs := quiz.Summary()
				summary = &qs
			}
			summaries[attempt.QuizID] = summary
		}
		entries = append(entries, HistoryEntry{Attempt: attempt, Quiz: summary})
	}
	return entries, nil
}

// Stats summarizes the user's completed attempts.
func (s *AttemptService) Stats(ctx context.Context, userID string) (Stats, error) {
	if userID == "" {
		return Stats{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	attempts, err := s.attempts.ListByUser(ctx, userID, domain.AttemptFilter{Status: domain.StatusCompleted})
	if err != nil {
		return Stats{}, unavailable("list attempts", err)
	}

	var stats Stats
	percentSum := 0
	for _, attempt := range attempts {
		stats.QuizzesCompleted++
		stats.TotalXP += attempt.XPEarned
		percentSum += attempt.Percentage
	}
	if stats.QuizzesCompleted > 0 {
		stats.AverageScore = grading.Percentage(percentSum, stats.QuizzesCompleted*100)
	}
	stats.Level = LevelForXP(stats.TotalXP)
	stats.XPToNextLevel = XPToNextLevel(stats.TotalXP)
	return stats, nil
}

func (s *AttemptService) loadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, unavailable("load quiz", err)
	}
	return quiz, nil
}

func (s *AttemptService) loadAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	if attemptID == "" {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, unavailable("load attempt", err)
	}
	return attempt, nil
}

func (s *AttemptService) isElevated(role string) bool {
	if role == "" {
		return false
	}
	_, ok := s.elevated[role]
	return ok
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUnavailable, err)
}
