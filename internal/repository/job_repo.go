package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hiddengems-web/internal/models"
)

const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = JobQueued

	config := []byte(j.ConfigJSON)
	if len(config) == 0 {
		config = []byte("{}")
	}

	query := `INSERT INTO generation_jobs (id, session_id, type, config_json, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		j.ID, j.SessionID, j.Type, config, j.Status,
	).Scan(&j.CreatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j := &models.Job{}
	query := `SELECT id, session_id, type, config_json, status, result_json, error_message, created_at, completed_at
		FROM generation_jobs WHERE id = $1`

	var result []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.SessionID, &j.Type, &j.ConfigJSON, &j.Status,
		&result, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(result) > 0 {
		j.ResultJSON = json.RawMessage(result)
	}
	return j, nil
}

func (r *JobRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE generation_jobs SET status = $1 WHERE id = $2", JobProcessing, id)
	return err
}

func (r *JobRepo) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	if len(result) == 0 {
		result = json.RawMessage("{}")
	}
	_, err := r.pool.Exec(ctx,
		"UPDATE generation_jobs SET status = $1, result_json = $2, completed_at = $3 WHERE id = $4",
		JobCompleted, []byte(result), time.Now(), id,
	)
	return err
}

// Fail is terminal; generation jobs are never retried.
func (r *JobRepo) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE generation_jobs SET status = $1, error_message = $2, completed_at = $3 WHERE id = $4",
		JobFailed, errMsg, time.Now(), id,
	)
	return err
}
