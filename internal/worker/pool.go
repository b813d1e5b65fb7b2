package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
	"hiddengems-web/internal/services"
)

const (
	popTimeout = 5 * time.Second
	lockTTL    = 5 * time.Minute
)

type SessionLoader interface {
	Load(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
}

type PosterStore interface {
	Put(ctx context.Context, sessionID uuid.UUID, p *models.Poster) error
}

// Pool runs long backend generations off the request path. A failed job is
// reported and left failed; nothing is retried.
type Pool struct {
	redis       *redis.Client
	client      *api.Client
	sessions    SessionLoader
	posters     PosterStore
	jobs        JobStore
	publisher   *Publisher
	workerCount int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	client *api.Client,
	sessions SessionLoader,
	posters PosterStore,
	jobs JobStore,
	publisher *Publisher,
	workerCount int,
) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:       redisClient,
		client:      client,
		sessions:    sessions,
		posters:     posters,
		jobs:        jobs,
		publisher:   publisher,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (p *Pool) Start() {
	queues := []string{
		queueName(models.JobTypePoster),
		queueName(models.JobTypeStory),
	}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

// Stop cancels in-flight jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int, queues []string) {
	defer p.wg.Done()

	for {
		if p.ctx.Err() != nil {
			log.Printf("Worker %d shutting down", id)
			return
		}

		result, err := p.redis.BLPop(p.ctx, popTimeout, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && p.ctx.Err() == nil {
				log.Printf("Worker %d: queue read failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(p.ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)
		p.process(p.ctx, &job)

		p.redis.Del(context.Background(), lockKey)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) {
	p.jobs.MarkProcessing(ctx, job.ID)
	p.publisher.Publish(ctx, job.SessionID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: 1, StepName: "Contacting backend"},
	})

	var (
		result any
		err    error
	)
	client, err := p.sessionClient(ctx, job.SessionID)
	if err == nil {
		switch job.Type {
		case models.JobTypePoster:
			result, err = p.processPoster(ctx, client, job)
		case models.JobTypeStory:
			result, err = p.processStory(ctx, client, job)
		default:
			err = fmt.Errorf("unknown job type: %s", job.Type)
		}
	}

	if err != nil {
		p.handleFailure(job, err)
		return
	}
	p.handleSuccess(job, result)
}

func (p *Pool) sessionClient(ctx context.Context, sessionID uuid.UUID) (*api.Client, error) {
	session, err := p.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &services.UnauthorizedError{Message: "Session expired before the job ran"}
	}
	return p.client.WithToken(session.AccessToken), nil
}

func (p *Pool) processPoster(ctx context.Context, c *api.Client, job *models.Job) (*models.PosterResult, error) {
	var cfg models.PosterJobConfig
	if err := json.Unmarshal(job.ConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("invalid poster job config: %w", err)
	}

	image, err := takeUpload(ctx, p.redis, job.ID)
	if err != nil {
		return nil, err
	}

	p.publisher.Publish(ctx, job.SessionID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: 2, StepName: "Generating poster"},
	})

	poster, err := c.GeneratePoster(ctx, image, cfg.ProductName)
	if err != nil {
		return nil, err
	}

	if err := p.posters.Put(ctx, job.SessionID, poster); err != nil {
		return nil, err
	}

	return &models.PosterResult{
		ContentType: poster.ContentType,
		Filename:    poster.Filename,
		Size:        len(poster.Data),
	}, nil
}

func (p *Pool) processStory(ctx context.Context, c *api.Client, job *models.Job) (*models.StoryResult, error) {
	var cfg models.StoryJobConfig
	if err := json.Unmarshal(job.ConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("invalid story job config: %w", err)
	}

	p.publisher.Publish(ctx, job.SessionID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: 2, StepName: "Writing story"},
	})

	story, err := c.GenerateStory(ctx, cfg.ArtisanID, cfg.ExtraInfo)
	if err != nil {
		return nil, err
	}
	return &models.StoryResult{Story: *story, WordCount: services.WordCount(story.Story)}, nil
}

// Results are recorded with a fresh context so a shutdown mid-job still
// leaves a terminal status behind.
func (p *Pool) handleSuccess(job *models.Job, result any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resultBytes, err := json.Marshal(result)
	if err != nil {
		p.handleFailure(job, fmt.Errorf("failed to encode result: %w", err))
		return
	}

	if err := p.jobs.Complete(ctx, job.ID, resultBytes); err != nil {
		log.Printf("Job %s: failed to record completion: %v", job.ID, err)
	}

	p.publisher.Publish(ctx, job.SessionID, models.WSMessage{
		Type:    "completed",
		Payload: models.CompletedEvent{JobID: job.ID, ResultType: resultType(job.Type)},
	})
	log.Printf("Job %s completed", job.ID)
}

func (p *Pool) handleFailure(job *models.Job, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errMsg := err.Error()
	log.Printf("Job %s failed: %s", job.ID, errMsg)

	if dbErr := p.jobs.Fail(ctx, job.ID, errMsg); dbErr != nil {
		log.Printf("Job %s: failed to record failure: %v", job.ID, dbErr)
	}

	p.publisher.Publish(ctx, job.SessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    ErrorCode(err),
			ErrorMessage: errMsg,
		},
	})
}

// ErrorCode names a failure the same way the HTTP error envelope does.
func ErrorCode(err error) string {
	apiErr, ok := api.AsError(err)
	if !ok {
		var unauthorized *services.UnauthorizedError
		if errors.As(err, &unauthorized) {
			return "UNAUTHORIZED"
		}
		return "JOB_FAILED"
	}
	switch {
	case apiErr.Kind == api.KindPrecondition:
		return "VALIDATION_ERROR"
	case apiErr.Kind == api.KindValidation:
		return "INVALID_BACKEND_RESPONSE"
	case apiErr.IsNetwork():
		return "BACKEND_UNAVAILABLE"
	default:
		return "BACKEND_ERROR"
	}
}

func resultType(jobType string) string {
	switch jobType {
	case models.JobTypePoster:
		return "poster"
	case models.JobTypeStory:
		return "story"
	default:
		return jobType
	}
}
