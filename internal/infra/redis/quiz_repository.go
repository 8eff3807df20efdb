package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizhub-attempt-service/internal/domain"
	"quizhub-attempt-service/internal/infra/memory"
)

// QuizRepository caches the gradable part of a quiz in Redis and falls back to a loader on cache miss.
// Layout, one pair of hashes per quiz:
//
//	HSET quiz:{quizID}:meta      title … category … difficulty … passingScore … order [q1,q2]
//	HSET quiz:{quizID}:questions {questionID} {"type":…,"points":…,"correctAnswer":…}
//
// Completed attempts are counted with INCR quiz:{quizID}:attempts.
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// cachedQuestion is the lightweight per-question cache entry; prompts and
// options are not needed for grading and are not cached.
type cachedQuestion struct {
	Kind          domain.QuestionKind `json:"type"`
	Points        int                 `json:"points"`
	CorrectAnswer domain.AnswerValue  `json:"correctAnswer"`
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.readCache(ctx, quizID); ok {
		return quiz, nil
	}

	// Callers share one load, so it must outlive any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.readCache(loadCtx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(loadCtx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.writeCache(loadCtx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// IncrementAttemptCount bumps the shared counter, and the loader's durable
// counter when it has one.
func (r *QuizRepository) IncrementAttemptCount(ctx context.Context, quizID string) error {
	if err := r.client.Incr(ctx, r.attemptsKey(quizID)).Err(); err != nil {
		return fmt.Errorf("incr attempts: %w", err)
	}
	if counter, ok := r.loader.(memory.AttemptCounter); ok {
		return counter.IncrementAttemptCount(ctx, quizID)
	}
	return nil
}

// AttemptCount reads the shared counter.
func (r *QuizRepository) AttemptCount(ctx context.Context, quizID string) (int64, error) {
	n, err := r.client.Get(ctx, r.attemptsKey(quizID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// readCache treats any Redis failure as a miss; the loader stays authoritative.
func (r *QuizRepository) readCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	pipe := r.client.Pipeline()
	metaCmd := pipe.HGetAll(ctx, r.metaKey(quizID))
	questionsCmd := pipe.HGetAll(ctx, r.questionsKey(quizID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Quiz{}, false
	}
	meta := metaCmd.Val()
	if len(meta) == 0 {
		return domain.Quiz{}, false
	}
	quiz, err := buildQuizFromCache(quizID, meta, questionsCmd.Val())
	if err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) writeCache(ctx context.Context, quiz domain.Quiz) {
	order := make([]string, 0, len(quiz.Questions))
	questions := make(map[string]interface{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		raw, err := json.Marshal(cachedQuestion{Kind: q.Kind, Points: q.Points, CorrectAnswer: q.CorrectAnswer})
		if err != nil {
			return
		}
		order = append(order, q.ID)
		questions[q.ID] = string(raw)
	}
	rawOrder, err := json.Marshal(order)
	if err != nil {
		return
	}

	ttl := r.ttlWithJitter()
	metaKey := r.metaKey(quiz.ID)
	questionsKey := r.questionsKey(quiz.ID)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, metaKey, questionsKey)
	if len(questions) > 0 {
		pipe.HSet(ctx, questionsKey, questions)
	}
	pipe.HSet(ctx, metaKey, map[string]interface{}{
		"title":        quiz.Title,
		"category":     quiz.Category,
		"difficulty":   quiz.Difficulty,
		"passingScore": quiz.PassingScore,
		"order":        string(rawOrder),
	})
	if ttl > 0 {
		pipe.Expire(ctx, metaKey, ttl)
		pipe.Expire(ctx, questionsKey, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (r *QuizRepository) metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func (r *QuizRepository) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuizRepository) attemptsKey(quizID string) string {
	return "quiz:" + quizID + ":attempts"
}

func buildQuizFromCache(quizID string, meta map[string]string, questions map[string]string) (domain.Quiz, error) {
	passing, err := strconv.Atoi(meta["passingScore"])
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("cached passing score: %w", err)
	}
	var order []string
	if err := json.Unmarshal([]byte(meta["order"]), &order); err != nil {
		return domain.Quiz{}, fmt.Errorf("cached question order: %w", err)
	}

	quiz := domain.Quiz{
		ID:           quizID,
		Title:        meta["title"],
		Category:     meta["category"],
		Difficulty:   meta["difficulty"],
		PassingScore: passing,
		Questions:    make([]domain.Question, 0, len(order)),
	}
	for _, questionID := range order {
		raw, ok := questions[questionID]
		if !ok {
			return domain.Quiz{}, fmt.Errorf("cached question %s missing", questionID)
		}
		var cq cachedQuestion
		if err := json.Unmarshal([]byte(raw), &cq); err != nil {
			return domain.Quiz{}, fmt.Errorf("cached question %s: %w", questionID, err)
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:            questionID,
			Kind:          cq.Kind,
			CorrectAnswer: cq.CorrectAnswer,
			Points:        cq.Points,
		})
	}
	return quiz, nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
