package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

type memoryJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: make(map[uuid.UUID]*models.Job)}
}

func (m *memoryJobs) Create(ctx context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = uuid.New()
	j.Status = "queued"
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memoryJobs) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *j
	return &cp, nil
}

func (m *memoryJobs) set(id uuid.UUID, fn func(j *models.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	fn(j)
	return nil
}

func (m *memoryJobs) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return m.set(id, func(j *models.Job) { j.Status = "processing" })
}

func (m *memoryJobs) Complete(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	return m.set(id, func(j *models.Job) { j.Status = "completed"; j.ResultJSON = result })
}

func (m *memoryJobs) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	return m.set(id, func(j *models.Job) { j.Status = "failed"; j.ErrorMessage = &errMsg })
}

type stubSessions map[uuid.UUID]*models.Session

func (s stubSessions) Load(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s[id], nil
}

type stubPosters struct {
	mu     sync.Mutex
	stored map[uuid.UUID]*models.Poster
}

func (s *stubPosters) Put(ctx context.Context, id uuid.UUID, p *models.Poster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[id] = p
	return nil
}

type fixture struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	jobs     *memoryJobs
	posters  *stubPosters
	sessions stubSessions
	queue    *Queue
	pool     *Pool
}

func newFixture(t *testing.T, backend http.HandlerFunc) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	f := &fixture{
		mr:       mr,
		rdb:      rdb,
		jobs:     newMemoryJobs(),
		posters:  &stubPosters{stored: make(map[uuid.UUID]*models.Poster)},
		sessions: stubSessions{},
	}
	f.queue = NewQueue(rdb, f.jobs)
	f.pool = NewPool(rdb, api.New(srv.URL), f.sessions, f.posters, f.jobs, NewPublisher(rdb), 1)
	return f
}

// pop takes the next job off a queue the way a worker would.
func (f *fixture) pop(t *testing.T, jobType string) *models.Job {
	t.Helper()
	raw, err := f.rdb.RPop(context.Background(), queueName(jobType)).Result()
	require.NoError(t, err)
	var job models.Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	return &job
}

func TestEnqueuePoster_ParksUpload(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	sid := uuid.New()

	job, err := f.queue.EnqueuePoster(context.Background(), sid,
		&api.File{Name: "vase.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}, "Blue Vase")
	require.NoError(t, err)

	assert.Equal(t, models.JobTypePoster, job.Type)
	assert.True(t, f.mr.Exists(uploadKey(job.ID)))
	assert.True(t, f.mr.TTL(uploadKey(job.ID)) > 0)

	queued := f.pop(t, models.JobTypePoster)
	assert.Equal(t, job.ID, queued.ID)
	assert.Equal(t, sid, queued.SessionID)

	var cfg models.PosterJobConfig
	require.NoError(t, json.Unmarshal(queued.ConfigJSON, &cfg))
	assert.Equal(t, "Blue Vase", cfg.ProductName)
}

func TestEnqueue_Preconditions(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := f.queue.EnqueuePoster(context.Background(), uuid.New(), nil, "")
	assert.True(t, api.IsKind(err, api.KindPrecondition))

	_, err = f.queue.EnqueueStory(context.Background(), uuid.New(), "", "")
	assert.True(t, api.IsKind(err, api.KindPrecondition))

	assert.Empty(t, f.jobs.jobs)
}

func TestProcess_PosterStoresArtifact(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpeg)
	})
	sid := uuid.New()
	f.sessions[sid] = &models.Session{AccessToken: "abc"}

	sub := f.rdb.Subscribe(context.Background(), SessionChannel(sid))
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	_, err = f.queue.EnqueuePoster(context.Background(), sid,
		&api.File{Name: "vase.jpg", ContentType: "image/jpeg", Data: []byte("src")}, "")
	require.NoError(t, err)

	job := f.pop(t, models.JobTypePoster)
	f.pool.process(context.Background(), job)

	stored, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", stored.Status)

	var result models.PosterResult
	require.NoError(t, json.Unmarshal(stored.ResultJSON, &result))
	assert.Equal(t, "poster.jpg", result.Filename)
	assert.Equal(t, len(jpeg), result.Size)

	assert.Equal(t, jpeg, f.posters.stored[sid].Data)
	assert.False(t, f.mr.Exists(uploadKey(job.ID)), "upload should be consumed")

	var types []string
	for i := 0; i < 3; i++ {
		msg, err := sub.ReceiveMessage(context.Background())
		require.NoError(t, err)
		var ws models.WSMessage
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ws))
		types = append(types, ws.Type)
	}
	assert.Equal(t, []string{"status_update", "status_update", "completed"}, types)
}

func TestProcess_FailureIsTerminal(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"model overloaded"}`))
	})
	sid := uuid.New()
	f.sessions[sid] = &models.Session{AccessToken: "abc"}

	_, err := f.queue.EnqueueStory(context.Background(), sid, "a1", "")
	require.NoError(t, err)

	job := f.pop(t, models.JobTypeStory)
	f.pool.process(context.Background(), job)

	stored, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "model overloaded", *stored.ErrorMessage)

	n, err := f.rdb.LLen(context.Background(), queueName(models.JobTypeStory)).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "failed jobs are not requeued")
}

func TestProcess_StoryCountsWords(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a1", r.URL.Query().Get("artisan_id"))
		w.Write([]byte(`{"status":"success","story":"Asha shapes blue clay","artisan_id":"a1"}`))
	})
	sid := uuid.New()
	f.sessions[sid] = &models.Session{AccessToken: "abc"}

	_, err := f.queue.EnqueueStory(context.Background(), sid, "a1", "")
	require.NoError(t, err)
	job := f.pop(t, models.JobTypeStory)
	f.pool.process(context.Background(), job)

	stored, _ := f.jobs.GetByID(context.Background(), job.ID)
	var result models.StoryResult
	require.NoError(t, json.Unmarshal(stored.ResultJSON, &result))
	assert.Equal(t, "Asha shapes blue clay", result.Story.Story)
	assert.Equal(t, 4, result.WordCount)
}

func TestProcess_ExpiredSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("backend must not be called without a session")
	})

	_, err := f.queue.EnqueueStory(context.Background(), uuid.New(), "a1", "")
	require.NoError(t, err)
	job := f.pop(t, models.JobTypeStory)
	f.pool.process(context.Background(), job)

	stored, _ := f.jobs.GetByID(context.Background(), job.ID)
	assert.Equal(t, "failed", stored.Status)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR", ErrorCode(&api.Error{Kind: api.KindPrecondition}))
	assert.Equal(t, "INVALID_BACKEND_RESPONSE", ErrorCode(&api.Error{Kind: api.KindValidation}))
	assert.Equal(t, "BACKEND_UNAVAILABLE", ErrorCode(&api.Error{Kind: api.KindTransport}))
	assert.Equal(t, "BACKEND_ERROR", ErrorCode(&api.Error{Kind: api.KindTransport, Status: 500}))
	assert.Equal(t, "JOB_FAILED", ErrorCode(errors.New("boom")))
}
