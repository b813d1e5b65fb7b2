package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hiddengems-web/internal/models"
)

const posterKeyPrefix = "poster:"

// PosterRepo holds at most one generated poster per session. Storing a new
// one releases the previous.
type PosterRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPosterRepo(rdb *redis.Client, ttl time.Duration) *PosterRepo {
	return &PosterRepo{rdb: rdb, ttl: ttl}
}

func posterKey(sessionID uuid.UUID) string {
	return posterKeyPrefix + sessionID.String()
}

func (r *PosterRepo) Put(ctx context.Context, sessionID uuid.UUID, p *models.Poster) error {
	key := posterKey(sessionID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"data", p.Data,
			"content_type", p.ContentType,
			"filename", p.Filename,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store poster: %w", err)
	}
	return nil
}

// Get returns nil without error when the session has no poster.
func (r *PosterRepo) Get(ctx context.Context, sessionID uuid.UUID) (*models.Poster, error) {
	fields, err := r.rdb.HGetAll(ctx, posterKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load poster: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &models.Poster{
		Data:        []byte(fields["data"]),
		ContentType: fields["content_type"],
		Filename:    fields["filename"],
	}, nil
}

func (r *PosterRepo) Discard(ctx context.Context, sessionID uuid.UUID) error {
	if err := r.rdb.Del(ctx, posterKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to discard poster: %w", err)
	}
	return nil
}
