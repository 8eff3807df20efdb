package memory

import (
	"strings"
	"testing"

	"quizhub-attempt-service/internal/domain"
)

const fixtureYAML = `
quizzes:
  - id: geo-1
    title: Capitals
    category: Geography
    difficulty: EASY
    passingScore: 70
    questions:
      - id: q1
        type: MULTIPLE_CHOICE
        question: Capital of France?
        options: [Paris, Lyon]
        correctAnswer: Paris
        points: 10
      - id: q2
        type: TRUE_FALSE
        question: Berlin is in Germany.
        correctAnswer: true
        points: 5
      - id: q3
        type: SHORT_ANSWER
        question: Spell the colour of the sky.
        correctAnswer: [blue, Blue]
        points: 5
  - id: misc
    questions:
      - id: q1
        type: SHORT_ANSWER
        correctAnswer: 42
        points: 1
`

func TestParseQuizzes(t *testing.T) {
	quizzes, err := ParseQuizzes([]byte(fixtureYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	geo, ok := quizzes["geo-1"]
	if !ok {
		t.Fatalf("geo-1 missing")
	}
	if geo.PassingScore != 70 || len(geo.Questions) != 3 || geo.TotalPoints() != 20 {
		t.Fatalf("unexpected quiz %+v", geo)
	}
	if !geo.Questions[1].CorrectAnswer.Equal(domain.SingleAnswer("true")) {
		t.Fatalf("boolean key not normalized: %v", geo.Questions[1].CorrectAnswer)
	}
	if !geo.Questions[2].CorrectAnswer.Equal(domain.MultiAnswer("blue", "Blue")) {
		t.Fatalf("sequence key not decoded: %v", geo.Questions[2].CorrectAnswer)
	}

	misc := quizzes["misc"]
	if misc.PassingScore != DefaultPassingScore {
		t.Fatalf("expected default passing score, got %d", misc.PassingScore)
	}
	if !misc.Questions[0].CorrectAnswer.Equal(domain.SingleAnswer("42")) {
		t.Fatalf("numeric key not normalized: %v", misc.Questions[0].CorrectAnswer)
	}
}

func TestParseQuizzesCollapsesSingleItemList(t *testing.T) {
	doc := `
quizzes:
  - id: x
    questions:
      - {id: q1, type: MULTIPLE_CHOICE, options: [A, B], correctAnswer: [A], points: 1}`
	quizzes, err := ParseQuizzes([]byte(strings.TrimSpace(doc)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if key := quizzes["x"].Questions[0].CorrectAnswer; !key.Equal(domain.SingleAnswer("A")) {
		t.Fatalf("expected single key A, got %v (multi=%v)", key, key.IsMulti())
	}
}

func TestParseQuizzesRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown type": `
quizzes:
  - id: x
    questions:
      - {id: q1, type: ESSAY, correctAnswer: a, points: 1}`,
		"zero points": `
quizzes:
  - id: x
    questions:
      - {id: q1, type: SHORT_ANSWER, correctAnswer: a, points: 0}`,
		"missing key": `
quizzes:
  - id: x
    questions:
      - {id: q1, type: SHORT_ANSWER, points: 1}`,
		"duplicate question": `
quizzes:
  - id: x
    questions:
      - {id: q1, type: SHORT_ANSWER, correctAnswer: a, points: 1}
      - {id: q1, type: SHORT_ANSWER, correctAnswer: b, points: 1}`,
		"list key on multiple choice": `
quizzes:
  - id: x
    questions:
      - {id: q1, type: MULTIPLE_CHOICE, options: [A, B, C], correctAnswer: [A, C], points: 10}`,
		"list key on true false": `
quizzes:
  - id: x
    questions:
      - {id: q1, type: TRUE_FALSE, correctAnswer: ["true", "false"], points: 1}`,
		"passing score range": `
quizzes:
  - id: x
    passingScore: 120
    questions: []`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseQuizzes([]byte(strings.TrimSpace(doc))); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
