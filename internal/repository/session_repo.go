package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hiddengems-web/internal/models"
)

// The browser app kept a session under exactly two storage keys; the
// gateway keeps the same pair per session id.
const (
	sessionTokenPrefix = "hgoi_token:"
	sessionUserPrefix  = "hgoi_user:"
)

type SessionRepo struct {
	rdb *redis.Client
}

func NewSessionRepo(rdb *redis.Client) *SessionRepo {
	return &SessionRepo{rdb: rdb}
}

func sessionKeys(sessionID uuid.UUID) (string, string) {
	id := sessionID.String()
	return sessionTokenPrefix + id, sessionUserPrefix + id
}

// Save writes the token and the serialized user in one MULTI/EXEC.
func (r *SessionRepo) Save(ctx context.Context, sessionID uuid.UUID, s *models.Session, ttl time.Duration) error {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to encode session user: %w", err)
	}

	tokenKey, userKey := sessionKeys(sessionID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey, s.AccessToken, ttl)
		pipe.Set(ctx, userKey, userJSON, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns nil without error when either key is missing; a half
// written session is treated as no session.
func (r *SessionRepo) Load(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	tokenKey, userKey := sessionKeys(sessionID)
	vals, err := r.rdb.MGet(ctx, tokenKey, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	token, ok := vals[0].(string)
	if !ok || token == "" {
		return nil, nil
	}
	userJSON, ok := vals[1].(string)
	if !ok {
		return nil, nil
	}

	s := &models.Session{AccessToken: token}
	if err := json.Unmarshal([]byte(userJSON), &s.User); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}
	return s, nil
}

// Clear removes both keys together.
func (r *SessionRepo) Clear(ctx context.Context, sessionID uuid.UUID) error {
	tokenKey, userKey := sessionKeys(sessionID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tokenKey, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
