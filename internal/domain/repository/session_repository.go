package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"miniblog/internal/common"
)

// Session is the server-side record behind a session token: who the token
// belongs to and the anti-forgery value issued alongside it. Deleting the
// record revokes the token regardless of its signature's validity.
type Session struct {
	UserID    string
	CSRFToken string
}

type SessionRepository interface {
	Create(ctx context.Context, sid string, sess Session, ttl time.Duration) error
	Find(ctx context.Context, sid string) (*Session, error)
	Delete(ctx context.Context, sid string) error
}

type redisSessionRepository struct {
	rdb *redis.Client
}

func NewRedisSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func sessionKey(sid string) string { return "session:" + sid }

func (r *redisSessionRepository) Create(ctx context.Context, sid string, sess Session, ttl time.Duration) error {
	key := sessionKey(sid)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, "user_id", sess.UserID, "csrf_token", sess.CSRFToken)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisSessionRepository.Create: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) Find(ctx context.Context, sid string) (*Session, error) {
	vals, err := r.rdb.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisSessionRepository.Find: %w", err)
	}
	if len(vals) == 0 { // HGETALL on a missing key yields an empty map
		return nil, common.ErrNotFound
	}
	return &Session{
		UserID:    vals["user_id"],
		CSRFToken: vals["csrf_token"],
	}, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, sid string) error {
	if err := r.rdb.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("redisSessionRepository.Delete: %w", err)
	}
	return nil
}
