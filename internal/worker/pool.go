package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ofuq-backend/internal/models"
)

const (
	popTimeout  = 5 * time.Second
	jobLockTTL  = 10 * time.Minute
	jobDeadline = 5 * time.Minute
)

// JobStore records job progress.
type JobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string) error
	SetResult(ctx context.Context, id uuid.UUID, result any) error
}

type WeeklyGenerator interface {
	GenerateWeekly(ctx context.Context) models.GenerationResult
}

// Publisher delivers an event to one user's websocket connections.
type Publisher interface {
	PublishToUser(ctx context.Context, userID string, msg models.WSMessage) error
}

func QueueName(jobType string) string {
	return "queue:" + jobType
}

// Enqueue pushes a persisted job onto its type's queue.
func Enqueue(ctx context.Context, rdb *redis.Client, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := rdb.LPush(ctx, QueueName(job.Type), data).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

type Pool struct {
	redis       *redis.Client
	jobs        JobStore
	generator   WeeklyGenerator
	events      Publisher
	workerCount int
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(redisClient *redis.Client, jobs JobStore, generator WeeklyGenerator, events Publisher, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		jobs:        jobs,
		generator:   generator,
		events:      events,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{QueueName(models.JobTypeInsightGeneration)}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

// Stop signals the workers and waits for in-flight jobs. A worker blocked in
// BLPOP notices within popTimeout.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

func (p *Pool) worker(id int, queues []string) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			log.Printf("worker %d: shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, popTimeout, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("worker %d: failed to parse job: %v", id, err)
			continue
		}

		p.handle(ctx, id, &job)
	}
}

func (p *Pool) handle(ctx context.Context, workerID int, job *models.Job) {
	lockKey := fmt.Sprintf("job_lock:%s", job.ID)
	locked, err := p.redis.SetNX(ctx, lockKey, "1", jobLockTTL).Result()
	if err != nil || !locked {
		return // Another worker has this job
	}
	defer p.redis.Del(ctx, lockKey)

	log.Printf("worker %d: processing job %s (type: %s)", workerID, job.ID, job.Type)
	p.jobs.UpdateStatus(ctx, job.ID, "processing")

	runCtx, cancel := context.WithTimeout(ctx, jobDeadline)
	defer cancel()

	var (
		res        models.GenerationResult
		processErr error
	)
	switch job.Type {
	case models.JobTypeInsightGeneration:
		res = p.generator.GenerateWeekly(runCtx)
		if !res.Success {
			processErr = fmt.Errorf("%s", res.Error)
		}
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	// The daily lock is consumed by the first attempt, so a failed job is
	// never re-queued.
	if processErr != nil {
		p.handleFailure(ctx, job, res, processErr)
		return
	}
	p.handleSuccess(ctx, job, res)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, res models.GenerationResult) {
	if err := p.jobs.SetResult(ctx, job.ID, res); err != nil {
		log.Printf("worker: failed to store result for job %s: %v", job.ID, err)
	}
	p.jobs.UpdateStatus(ctx, job.ID, "completed")

	p.publish(ctx, job.UserID, models.WSMessage{
		Type:    models.EventJobCompleted,
		Payload: models.CompletedEvent{JobID: job.ID, Result: res},
	})

	log.Printf("worker: job %s completed", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, res models.GenerationResult, err error) {
	errMsg := err.Error()
	log.Printf("worker: job %s failed: %s", job.ID, errMsg)

	if err := p.jobs.SetResult(ctx, job.ID, res); err != nil {
		log.Printf("worker: failed to store result for job %s: %v", job.ID, err)
	}
	p.jobs.UpdateError(ctx, job.ID, errMsg)
	p.jobs.UpdateStatus(ctx, job.ID, "failed")

	p.publish(ctx, job.UserID, models.WSMessage{
		Type: models.EventJobFailed,
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

func (p *Pool) publish(ctx context.Context, userID string, msg models.WSMessage) {
	if p.events == nil || userID == "" {
		return
	}
	if err := p.events.PublishToUser(ctx, userID, msg); err != nil {
		log.Printf("worker: publish %s to %s: %v", msg.Type, userID, err)
	}
}
