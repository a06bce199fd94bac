package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"timeoff-tracker-go/internal/models"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = 24 * time.Hour

// RedisSessionStore keeps bearer-token sessions in Redis with a TTL, so a
// token can be revoked on logout and expires on its own otherwise.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(opts *redis.Options) *RedisSessionStore {
	return &RedisSessionStore{client: redis.NewClient(opts)}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *RedisSessionStore) CreateSession(ctx context.Context, user models.User) (string, error) {
	token, err := models.GenerateToken()
	if err != nil {
		return "", err
	}

	sess := models.Session{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, sessionKey(token), data, sessionTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisSessionStore) GetSession(ctx context.Context, token string) (models.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}
