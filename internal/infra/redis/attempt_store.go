package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quizhub-attempt-service/internal/domain"
)

// AttemptStore keeps attempts as JSON documents:
//
//	SET  attempt:{attemptID}        {json}
//	ZADD user:{userID}:attempts     {startedAt unix nanos} {attemptID}
//
// Completion runs under WATCH on the attempt key, so two concurrent
// submissions cannot both commit.
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(attempt.ID), raw, 0)
		pipe.ZAdd(ctx, s.userKey(attempt.UserID), redis.Z{
			Score:  float64(attempt.StartedAt.UnixNano()),
			Member: attempt.ID,
		})
		return nil
	})
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("store attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	return s.get(ctx, s.client, attemptID)
}

func (s *AttemptStore) ConditionalUpdate(ctx context.Context, attemptID string, expected domain.AttemptStatus, c domain.Completion) (domain.Attempt, error) {
	var updated domain.Attempt
	key := s.key(attemptID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		attempt, err := s.get(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status != expected {
			return domain.ErrPreconditionFailed
		}
		updated = attempt.Complete(c)
		raw, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("marshal attempt: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// The watched key changed underneath us; only a completion writes it.
		return domain.Attempt{}, domain.ErrPreconditionFailed
	case err != nil:
		return domain.Attempt{}, err
	}
	return updated, nil
}

func (s *AttemptStore) ListByUser(ctx context.Context, userID string, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	ids, err := s.client.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempt ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Attempt{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}

	out := make([]domain.Attempt, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var attempt domain.Attempt
		if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		if !filter.Matches(attempt) {
			continue
		}
		out = append(out, attempt)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *AttemptStore) get(ctx context.Context, c redis.Cmdable, attemptID string) (domain.Attempt, error) {
	raw, err := c.Get(ctx, s.key(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("decode attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) key(attemptID string) string {
	return "attempt:" + attemptID
}

func (s *AttemptStore) userKey(userID string) string {
	return "user:" + userID + ":attempts"
}
