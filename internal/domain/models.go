package domain

import (
	"fmt"
	"time"
)

// QuestionKind enumerates the supported question formats.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "MULTIPLE_CHOICE"
	KindTrueFalse      QuestionKind = "TRUE_FALSE"
	KindShortAnswer    QuestionKind = "SHORT_ANSWER"
)

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindShortAnswer:
		return true
	}
	return false
}

// Question is a single gradable item of a quiz.
type Question struct {
	ID            string       `json:"id"`
	Kind          QuestionKind `json:"type"`
	Prompt        string       `json:"question,omitempty"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer AnswerValue  `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Points        int          `json:"points"`
}

// Accepts reports whether a submitted value matches the answer key.
// Comparison is exact: no trimming and no case folding. A question takes one
// answer, so multi-valued submissions never match. Short-answer keys may list
// several acceptable values; every other kind has exactly one.
func (q Question) Accepts(v AnswerValue) bool {
	submitted, ok := v.Single()
	if !ok {
		return false
	}
	if q.Kind == KindShortAnswer {
		for _, acceptable := range q.CorrectAnswer.Values() {
			if submitted == acceptable {
				return true
			}
		}
		return false
	}
	key, ok := q.CorrectAnswer.Single()
	return ok && submitted == key
}

// Validate checks the question is gradable.
func (q Question) Validate() error {
	switch {
	case q.ID == "":
		return fmt.Errorf("question without id")
	case !q.Kind.Valid():
		return fmt.Errorf("question %q: unknown type %q", q.ID, q.Kind)
	case q.Points <= 0:
		return fmt.Errorf("question %q: points must be positive", q.ID)
	case len(q.CorrectAnswer.Values()) == 0:
		return fmt.Errorf("question %q: correctAnswer is required", q.ID)
	case q.CorrectAnswer.IsMulti() && q.Kind != KindShortAnswer:
		return fmt.Errorf("question %q: only %s questions may list several answers", q.ID, KindShortAnswer)
	}
	return nil
}

// Quiz is an immutable quiz definition as far as grading is concerned.
type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Category     string     `json:"category,omitempty"`
	Difficulty   string     `json:"difficulty,omitempty"`
	Questions    []Question `json:"questions"`
	PassingScore int        `json:"passingScore"` // percent, 0-100
}

// TotalPoints sums the points of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Validate checks the quiz and each of its questions.
func (q Quiz) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("quiz without id")
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("quiz %q: passingScore %d out of range", q.ID, q.PassingScore)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return fmt.Errorf("quiz %q: %w", q.ID, err)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("quiz %q: duplicate question %q", q.ID, question.ID)
		}
		seen[question.ID] = struct{}{}
	}
	return nil
}

// Summary returns the descriptive part of the quiz.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:         q.ID,
		Title:      q.Title,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

// QuizSummary is the quiz view embedded in attempt history.
type QuizSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// SubmittedAnswer is one answer sent by a client.
type SubmittedAnswer struct {
	QuestionID string      `json:"questionId"`
	RawValue   AnswerValue `json:"userAnswer"`
}

// GradedAnswer is the outcome of grading one question.
type GradedAnswer struct {
	QuestionID   string      `json:"questionId"`
	RawValue     AnswerValue `json:"userAnswer"`
	IsCorrect    bool        `json:"isCorrect"`
	PointsEarned int         `json:"pointsEarned"`
}

// GradedResult is the output of grading a full submission.
type GradedResult struct {
	Answers     []GradedAnswer
	Score       int
	TotalPoints int
	Percentage  int
	IsPassed    bool
}

// AttemptStatus is the lifecycle state of an attempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is one user's try at a quiz.
type Attempt struct {
	ID          string         `json:"id"`
	QuizID      string         `json:"quizId"`
	UserID      string         `json:"userId"`
	Status      AttemptStatus  `json:"status"`
	Answers     []GradedAnswer `json:"answers"`
	Score       int            `json:"score"`
	Percentage  int            `json:"percentage"`
	IsPassed    bool           `json:"isPassed"`
	XPEarned    int            `json:"xpEarned"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// NewAttempt returns a fresh in-progress attempt.
func NewAttempt(id, quizID, userID string, startedAt time.Time) Attempt {
	return Attempt{
		ID:        id,
		QuizID:    quizID,
		UserID:    userID,
		Status:    StatusInProgress,
		Answers:   []GradedAnswer{},
		StartedAt: startedAt,
	}
}

// Completion carries every field set by the single COMPLETED transition.
type Completion struct {
	Answers     []GradedAnswer
	Score       int
	Percentage  int
	IsPassed    bool
	XPEarned    int
	CompletedAt time.Time
}

// Complete applies c and marks the attempt completed. Identity fields
// (id, quiz, owner, start time) are left untouched.
func (a Attempt) Complete(c Completion) Attempt {
	completedAt := c.CompletedAt
	a.Status = StatusCompleted
	a.Answers = c.Answers
	if a.Answers == nil {
		a.Answers = []GradedAnswer{}
	}
	a.Score = c.Score
	a.Percentage = c.Percentage
	a.IsPassed = c.IsPassed
	a.XPEarned = c.XPEarned
	a.CompletedAt = &completedAt
	return a
}

// AttemptFilter narrows ListByUser results. Zero Limit means no limit.
type AttemptFilter struct {
	Status AttemptStatus
	Limit  int
}

// Matches reports whether a passes the status filter.
func (f AttemptFilter) Matches(a Attempt) bool {
	return f.Status == "" || a.Status == f.Status
}
