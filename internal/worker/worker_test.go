package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/prediction"
	"github.com/cuongbtq/job-title-predictor/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJobID = "0a1b2c3d"

type fakeStore struct {
	mu          sync.Mutex
	claimErr    error
	completeErr error
	failErr     error
	releaseErr  error
	completed   map[string]string
	results     map[string][]byte
	failed      map[string]string
	messages    map[string]string
	released    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		completed: make(map[string]string),
		results:   make(map[string][]byte),
		failed:    make(map[string]string),
		messages:  make(map[string]string),
	}
}

func (s *fakeStore) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	return &domain.Job{
		JobID:     jobID,
		Status:    prediction.StatusAwaitingResult,
		WorkerID:  workerID,
		CreatedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (s *fakeStore) CompleteJob(ctx context.Context, jobID, predictedTitle string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	s.completed[jobID] = predictedTitle
	s.results[jobID] = result
	return nil
}

func (s *fakeStore) FailJob(ctx context.Context, jobID, status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.failed[jobID] = status
	s.messages[jobID] = errorMessage
	return nil
}

func (s *fakeStore) ReleaseJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = append(s.released, jobID)
	return nil
}

type fakeAwaiter struct {
	await func(ctx context.Context, job *prediction.Job) (*prediction.PredictionResult, error)
}

func (a *fakeAwaiter) JobFor(id string, createdAt time.Time) *prediction.Job {
	return &prediction.Job{
		ID:           id,
		OutputObject: "job-results/output_" + id + ".json",
		CreatedAt:    createdAt,
	}
}

func (a *fakeAwaiter) AwaitResult(ctx context.Context, job *prediction.Job, maxAttempts int, interval time.Duration) (*prediction.PredictionResult, error) {
	return a.await(ctx, job)
}

func returns(result *prediction.PredictionResult, err error) *fakeAwaiter {
	return &fakeAwaiter{await: func(ctx context.Context, job *prediction.Job) (*prediction.PredictionResult, error) {
		return result, err
	}}
}

type fakeAcker struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.nacked)
}

type fakeSource struct {
	deliveries chan amqp.Delivery
	err        error
}

func (s *fakeSource) Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.deliveries, nil
}

func sampleResult() *prediction.PredictionResult {
	return &prediction.PredictionResult{
		PredictedTitle: "Backend Engineer",
		TopSimilar: []prediction.SimilarJob{
			{JobTitle: "Cloud Developer", Company: "Acme", Cosine: 0.92},
		},
	}
}

func newTestWorker(store *fakeStore, awaiter *fakeAwaiter, source MessageSource) *Worker {
	return NewWorker(&Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Source:       source,
		Store:        store,
		Awaiter:      awaiter,
		WorkerID:     "worker-test",
		QueueName:    "prediction_polls",
		Concurrency:  2,
		JobTimeout:   time.Minute,
		PollAttempts: 30,
		PollInterval: 3 * time.Second,
	})
}

func TestProcessJob_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		awaitErr    error
		result      *prediction.PredictionResult
		wantStatus  string
		wantMessage string
	}{
		{
			name:       "result arrives",
			result:     sampleResult(),
			wantStatus: prediction.StatusSucceeded,
		},
		{
			name:        "no result within the polling budget",
			awaitErr:    &prediction.TimeoutError{JobID: testJobID, Attempts: 30, Interval: 3 * time.Second},
			wantStatus:  prediction.StatusTimedOut,
			wantMessage: "no result for job 0a1b2c3d after 30 checks every 3s",
		},
		{
			name:        "job timeout elapses",
			awaitErr:    fmt.Errorf("failed waiting for result of job %s: %w", testJobID, context.DeadlineExceeded),
			wantStatus:  prediction.StatusTimedOut,
			wantMessage: "no result within job timeout of 1m0s",
		},
		{
			name:        "malformed result",
			awaitErr:    &prediction.MalformedResultError{JobID: testJobID, Reason: `missing key "predicted_title"`},
			wantStatus:  prediction.StatusFailed,
			wantMessage: `malformed result for job 0a1b2c3d: missing key "predicted_title"`,
		},
		{
			name:        "storage error",
			awaitErr:    errors.New("failed waiting for result of job 0a1b2c3d: permission denied"),
			wantStatus:  prediction.StatusFailed,
			wantMessage: "failed waiting for result of job 0a1b2c3d: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			w := newTestWorker(store, returns(tt.result, tt.awaitErr), nil)

			err := w.processJob(context.Background(), &domain.JobMessage{JobID: testJobID, DeliveryTag: 1})
			require.NoError(t, err)

			if tt.wantStatus == prediction.StatusSucceeded {
				assert.Equal(t, "Backend Engineer", store.completed[testJobID])
				assert.JSONEq(t,
					`{"predicted_title":"Backend Engineer","top_similar":[{"job_title":"Cloud Developer","company":"Acme","sector":"","industry":"","location":"","country":"","salary_range":"","qualifications":"","cosine":0.92}]}`,
					string(store.results[testJobID]))
				assert.Empty(t, store.failed)
				return
			}

			assert.Equal(t, tt.wantStatus, store.failed[testJobID])
			assert.Equal(t, tt.wantMessage, store.messages[testJobID])
			assert.Empty(t, store.completed)
		})
	}
}

func TestProcessJob_AlreadyClaimed(t *testing.T) {
	store := newFakeStore()
	store.claimErr = domain.ErrJobAlreadyClaimed
	w := newTestWorker(store, returns(sampleResult(), nil), nil)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: testJobID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)
	assert.False(t, w.shouldRequeueJob(err))
	assert.Empty(t, store.completed)
}

func TestProcessJob_ClaimDatabaseError(t *testing.T) {
	store := newFakeStore()
	store.claimErr = errors.New("connection refused")
	w := newTestWorker(store, returns(sampleResult(), nil), nil)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: testJobID})
	require.Error(t, err)
	assert.True(t, w.shouldRequeueJob(err))
}

func TestProcessJob_ShutdownReleasesJob(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awaiter := &fakeAwaiter{await: func(awaitCtx context.Context, job *prediction.Job) (*prediction.PredictionResult, error) {
		cancel()
		<-awaitCtx.Done()
		return nil, fmt.Errorf("failed waiting for result of job %s: %w", job.ID, awaitCtx.Err())
	}}
	w := newTestWorker(store, awaiter, nil)

	err := w.processJob(ctx, &domain.JobMessage{JobID: testJobID})
	require.Error(t, err)
	assert.True(t, w.shouldRequeueJob(err))
	assert.Equal(t, []string{testJobID}, store.released)
	assert.Empty(t, store.failed)
}

func TestProcessJob_OutcomeWriteFailureReleasesJob(t *testing.T) {
	store := newFakeStore()
	store.completeErr = errors.New("connection reset")
	w := newTestWorker(store, returns(sampleResult(), nil), nil)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: testJobID})
	require.Error(t, err)
	assert.True(t, w.shouldRequeueJob(err))
	assert.Equal(t, []string{testJobID}, store.released)
}

func TestProcessJob_ReleaseFailureIsNotRequeued(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("connection reset")
	store.releaseErr = errors.New("connection reset")
	w := newTestWorker(store, returns(nil, &prediction.TimeoutError{JobID: testJobID, Attempts: 30, Interval: time.Second}), nil)

	err := w.processJob(context.Background(), &domain.JobMessage{JobID: testJobID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to release job")
	assert.False(t, w.shouldRequeueJob(err))
}

func TestShouldRequeueJob(t *testing.T) {
	w := newTestWorker(newFakeStore(), returns(nil, nil), nil)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "already claimed", err: fmt.Errorf("job already claimed: %w", domain.ErrJobAlreadyClaimed), want: false},
		{name: "invalid message", err: fmt.Errorf("%w: bad json", domain.ErrInvalidMessage), want: false},
		{name: "retryable", err: domain.NewRetryableError(errors.New("db down")), want: true},
		{name: "unknown", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldRequeueJob(tt.err))
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"job_id": "0a1b2c3d"}`},
		{name: "not json", body: `job 0a1b2c3d`, wantErr: true},
		{name: "uuid is not a job id", body: `{"job_id": "5f0c1a9e-0000-4000-8000-000000000000"}`, wantErr: true},
		{name: "missing id", body: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := decodeMessage(amqp.Delivery{Body: []byte(tt.body), DeliveryTag: 7})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testJobID, msg.JobID)
			assert.Equal(t, uint64(7), msg.DeliveryTag)
		})
	}
}

func TestWorker_StartSettlesDeliveries(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{deliveries: make(chan amqp.Delivery, 2)}
	w := newTestWorker(store, returns(sampleResult(), nil), source)
	acker := &fakeAcker{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	source.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte(`{"job_id": "0a1b2c3d"}`)}
	source.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte(`not json`)}

	assert.Eventually(t, func() bool {
		acked, nacked := acker.counts()
		return acked == 1 && nacked == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	w.Stop()
	assert.Zero(t, w.InFlight())

	acker.mu.Lock()
	defer acker.mu.Unlock()
	assert.Equal(t, []uint64{1}, acker.acked)
	assert.Equal(t, []uint64{2}, acker.nacked)
	assert.Equal(t, []bool{false}, acker.requeue)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "Backend Engineer", store.completed[testJobID])
}

func TestWorker_StartConsumeError(t *testing.T) {
	w := newTestWorker(newFakeStore(), returns(nil, nil), &fakeSource{err: errors.New("not connected to RabbitMQ")})

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start consuming")
}
