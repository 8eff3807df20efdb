package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quizhub-attempt-service/internal/domain"
)

// DefaultPassingScore applies to fixtures that omit passingScore.
const DefaultPassingScore = 60

type quizFile struct {
	Quizzes []quizFixture `yaml:"quizzes"`
}

type quizFixture struct {
	ID           string            `yaml:"id"`
	Title        string            `yaml:"title"`
	Description  string            `yaml:"description"`
	Category     string            `yaml:"category"`
	Difficulty   string            `yaml:"difficulty"`
	PassingScore *int              `yaml:"passingScore"`
	Questions    []questionFixture `yaml:"questions"`
}

type questionFixture struct {
	ID            string    `yaml:"id"`
	Type          string    `yaml:"type"`
	Question      string    `yaml:"question"`
	Options       []string  `yaml:"options"`
	CorrectAnswer yaml.Node `yaml:"correctAnswer"`
	Explanation   string    `yaml:"explanation"`
	Points        int       `yaml:"points"`
}

// LoadQuizFile reads quiz definitions from a YAML fixture file.
func LoadQuizFile(path string) (map[string]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseQuizzes(data)
}

// ParseQuizzes decodes and validates YAML quiz fixtures.
func ParseQuizzes(data []byte) (map[string]domain.Quiz, error) {
	var file quizFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode quiz fixtures: %w", err)
	}

	quizzes := make(map[string]domain.Quiz, len(file.Quizzes))
	for _, fx := range file.Quizzes {
		quiz, err := fx.toDomain()
		if err != nil {
			return nil, err
		}
		if _, dup := quizzes[quiz.ID]; dup {
			return nil, fmt.Errorf("quiz %q: duplicate id", quiz.ID)
		}
		quizzes[quiz.ID] = quiz
	}
	return quizzes, nil
}

func (fx quizFixture) toDomain() (domain.Quiz, error) {
	passing := DefaultPassingScore
	if fx.PassingScore != nil {
		passing = *fx.PassingScore
	}

	quiz := domain.Quiz{
		ID:           fx.ID,
		Title:        fx.Title,
		Description:  fx.Description,
		Category:     fx.Category,
		Difficulty:   fx.Difficulty,
		PassingScore: passing,
		Questions:    make([]domain.Question, 0, len(fx.Questions)),
	}
	for _, q := range fx.Questions {
		key, err := answerFromNode(q.CorrectAnswer)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("quiz %q question %q: %w", fx.ID, q.ID, err)
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:            q.ID,
			Kind:          domain.QuestionKind(q.Type),
			Prompt:        q.Question,
			Options:       q.Options,
			CorrectAnswer: key,
			Explanation:   q.Explanation,
			Points:        q.Points,
		})
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func answerFromNode(node yaml.Node) (domain.AnswerValue, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			break
		}
		return domain.SingleAnswer(node.Value), nil
	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return domain.AnswerValue{}, fmt.Errorf("correctAnswer items must be scalars")
			}
			values = append(values, item.Value)
		}
		if len(values) == 0 {
			break
		}
		return domain.MultiAnswer(values...), nil
	}
	return domain.AnswerValue{}, fmt.Errorf("correctAnswer is required")
}
