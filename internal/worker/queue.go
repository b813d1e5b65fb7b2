package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

const (
	uploadKeyPrefix = "upload:"
	uploadTTL       = 15 * time.Minute
)

// JobStore is the persistent record of generation jobs.
type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error
}

func queueName(jobType string) string {
	return "queue:" + jobType
}

func uploadKey(jobID uuid.UUID) string {
	return uploadKeyPrefix + jobID.String()
}

// Queue records a job and hands it to the worker pool.
type Queue struct {
	redis *redis.Client
	jobs  JobStore
}

func NewQueue(redisClient *redis.Client, jobs JobStore) *Queue {
	return &Queue{redis: redisClient, jobs: jobs}
}

// EnqueuePoster parks the uploaded picture in Redis until a worker picks
// the job up.
func (q *Queue) EnqueuePoster(ctx context.Context, sessionID uuid.UUID, image *api.File, productName string) (*models.Job, error) {
	if image == nil || len(image.Data) == 0 {
		return nil, &api.Error{Kind: api.KindPrecondition, Op: "generate poster", Detail: "image is required for poster generation"}
	}
	cfg, _ := json.Marshal(models.PosterJobConfig{ProductName: productName})
	job := &models.Job{SessionID: sessionID, Type: models.JobTypePoster, ConfigJSON: cfg}
	return job, q.enqueue(ctx, job, image)
}

func (q *Queue) EnqueueStory(ctx context.Context, sessionID uuid.UUID, artisanID, extraInfo string) (*models.Job, error) {
	if artisanID == "" {
		return nil, &api.Error{Kind: api.KindPrecondition, Op: "generate story", Detail: "artisan_id is required"}
	}
	cfg, _ := json.Marshal(models.StoryJobConfig{ArtisanID: artisanID, ExtraInfo: extraInfo})
	job := &models.Job{SessionID: sessionID, Type: models.JobTypeStory, ConfigJSON: cfg}
	return job, q.enqueue(ctx, job, nil)
}

func (q *Queue) enqueue(ctx context.Context, job *models.Job, upload *api.File) error {
	if err := q.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	_, err = q.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if upload != nil {
			key := uploadKey(job.ID)
			pipe.HSet(ctx, key,
				"name", upload.Name,
				"content_type", upload.ContentType,
				"data", upload.Data,
			)
			pipe.Expire(ctx, key, uploadTTL)
		}
		pipe.LPush(ctx, queueName(job.Type), string(jobBytes))
		return nil
	})
	if err != nil {
		q.jobs.Fail(ctx, job.ID, "failed to queue job")
		return fmt.Errorf("failed to queue job: %w", err)
	}
	return nil
}

// takeUpload returns and deletes the file parked for a job.
func takeUpload(ctx context.Context, rdb *redis.Client, jobID uuid.UUID) (*api.File, error) {
	key := uploadKey(jobID)
	var get *redis.MapStringStringCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGetAll(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}
	fields := get.Val()
	if len(fields) == 0 {
		return nil, fmt.Errorf("upload for job %s has expired", jobID)
	}
	return &api.File{
		Name:        fields["name"],
		ContentType: fields["content_type"],
		Data:        []byte(fields["data"]),
	}, nil
}

// Publisher pushes job progress to the session's WebSocket channel.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redis: redisClient}
}

func SessionChannel(sessionID uuid.UUID) string {
	return "session_updates:" + sessionID.String()
}

func (p *Publisher) Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	p.redis.Publish(ctx, SessionChannel(sessionID), string(data))
}
