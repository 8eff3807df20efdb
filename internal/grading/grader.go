// Package grading scores a submission against a quiz definition.
// Everything here is pure: no I/O, no clocks, no randomness.
package grading

import "quizhub-attempt-service/internal/domain"

// Grade scores every question of quiz in the quiz's own order.
//
// Answers for unknown question ids are ignored, and when a question id is
// submitted more than once the first occurrence wins. A question with no
// submitted answer counts as skipped: incorrect, zero points, empty echo.
func Grade(quiz domain.Quiz, submitted []domain.SubmittedAnswer) domain.GradedResult {
	byQuestion := make(map[string]domain.AnswerValue, len(submitted))
	for _, answer := range submitted {
		if _, seen := byQuestion[answer.QuestionID]; seen {
			continue
		}
		byQuestion[answer.QuestionID] = answer.RawValue
	}

	result := domain.GradedResult{
		Answers: make([]domain.GradedAnswer, 0, len(quiz.Questions)),
	}
	for _, question := range quiz.Questions {
		result.TotalPoints += question.Points

		raw := byQuestion[question.ID]
		graded := domain.GradedAnswer{
			QuestionID: question.ID,
			RawValue:   raw,
		}
		if question.Accepts(raw) {
			graded.IsCorrect = true
			graded.PointsEarned = question.Points
		}
		result.Score += graded.PointsEarned
		result.Answers = append(result.Answers, graded)
	}

	result.Percentage = Percentage(result.Score, result.TotalPoints)
	result.IsPassed = result.TotalPoints > 0 && result.Percentage >= quiz.PassingScore
	return result
}

// Percentage returns round(score/total*100) with halves rounded up, or 0
// when total is not positive.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}
