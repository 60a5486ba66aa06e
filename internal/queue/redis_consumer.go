/**
 * Direct Redis Queue Consumer for the Flight Capture Worker
 *
 * Producers LPUSH a job ID onto the queue list and store the job body in
 * the <queue>:data hash. Results land in <queue>:results, failures in
 * <queue>:errors, and every status change is published on <queue>:events.
 */

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
	"github.com/adverant/nexus/flightcapture-worker/internal/processor"
)

var errNoJobs = errors.New("no jobs available")

// Job statuses published on the events channel
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RedisJobData represents a job from the Redis queue
type RedisJobData struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Payload    CaptureJob `json:"payload"`
	CreatedAt  time.Time  `json:"createdAt"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"maxRetries"`
}

// RedisConsumer handles job consumption from Redis queue
type RedisConsumer struct {
	client    *redis.Client
	processor processor.CaptureProcessorInterface
	config    *RedisConsumerConfig
	keys      queueKeys
	logger    *logging.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// RedisConsumerConfig holds consumer configuration
type RedisConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.CaptureProcessorInterface
	ProcessingTimeout time.Duration
	MaxImageSize      int64
	Logger            *logging.Logger
}

type queueKeys struct {
	list, data, processing, completed, failed, results, errors, events string
}

func keysFor(queue string) queueKeys {
	return queueKeys{
		list:       queue,
		data:       queue + ":data",
		processing: queue + ":processing",
		completed:  queue + ":completed",
		failed:     queue + ":failed",
		results:    queue + ":results",
		errors:     queue + ":errors",
		events:     queue + ":events",
	}
}

// NewRedisConsumer creates a new Redis-based queue consumer
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "flightcapture:jobs"
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("RedisConsumer")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	return &RedisConsumer{
		client:    client,
		processor: cfg.Processor,
		config:    cfg,
		keys:      keysFor(cfg.QueueName),
		logger:    logger,
		ctx:       consumerCtx,
		cancel:    cancel,
	}, nil
}

// Start begins processing jobs from the queue
func (c *RedisConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Redis queue consumer",
		"concurrency", c.config.Concurrency,
		"queue", c.config.QueueName)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
	return nil
}

// Stop gracefully stops the consumer
func (c *RedisConsumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer")
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("Workers still running at shutdown deadline")
	}
	return c.client.Close()
}

func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()
	c.logger.Debug("Worker started", "worker", id)

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Debug("Worker stopping", "worker", id)
			return
		default:
			if err := c.processNextJob(); err != nil {
				if !errors.Is(err, errNoJobs) && c.ctx.Err() == nil {
					c.logger.Error("Worker error", "worker", id, "error", err)
					time.Sleep(time.Second)
				}
			}
		}
	}
}

// processNextJob fetches and processes the next job from the queue
func (c *RedisConsumer) processNextJob() error {
	result, err := c.client.BRPop(c.ctx, 5*time.Second, c.keys.list).Result()
	if err != nil {
		if err == redis.Nil {
			return errNoJobs
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}
	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}
	queueID := result[1]

	jobData, err := c.client.HGet(c.ctx, c.keys.data, queueID).Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJobData
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		c.updateJobStatus(queueID, StatusFailed, failurePayload(err, 1))
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == "" {
		job.ID = queueID
	}
	if job.Payload.JobID == "" {
		job.Payload.JobID = job.ID
	}
	jobID := job.Payload.JobID

	c.updateJobStatus(jobID, StatusProcessing, nil)

	res, err := c.processJob(&job)
	if err != nil {
		job.Attempts++
		if retryable(err) && job.Attempts < job.MaxRetries {
			updated, _ := json.Marshal(job)
			c.client.HSet(c.ctx, c.keys.data, job.ID, updated)
			c.client.LPush(c.ctx, c.keys.list, job.ID)
			c.logger.Warn("Job re-queued for retry",
				"job", jobID,
				"attempt", job.Attempts,
				"maxRetries", job.MaxRetries,
				"error", err)
			return nil
		}
		c.updateJobStatus(jobID, StatusFailed, failurePayload(err, job.Attempts))
		return nil
	}

	c.updateJobStatus(jobID, StatusCompleted, res)
	return nil
}

// processJob runs one capture with the configured deadline
func (c *RedisConsumer) processJob(job *RedisJobData) (*processor.CaptureResult, error) {
	start := time.Now()
	jobID := job.Payload.JobID

	res, err := runCapture(c.ctx, c.processor, &job.Payload, c.config.MaxImageSize, c.config.ProcessingTimeout)
	if err != nil {
		c.logger.Error("Job failed",
			"job", jobID,
			"code", apperrors.CodeOf(err),
			"durationMs", time.Since(start).Milliseconds(),
			"error", err)
		return nil, err
	}

	c.logger.Info("Job completed",
		"job", jobID,
		"key", res.Export.Key,
		"durationMs", time.Since(start).Milliseconds())
	return res, nil
}

// updateJobStatus moves the job between status sets, stores its result or
// error, and publishes a status event.
func (c *RedisConsumer) updateJobStatus(jobID, status string, result interface{}) {
	switch status {
	case StatusProcessing:
		c.client.SAdd(c.ctx, c.keys.processing, jobID)
	case StatusCompleted:
		c.client.SRem(c.ctx, c.keys.processing, jobID)
		c.client.SAdd(c.ctx, c.keys.completed, jobID)
		if result != nil {
			data, _ := json.Marshal(result)
			c.client.HSet(c.ctx, c.keys.results, jobID, data)
		}
	case StatusFailed:
		c.client.SRem(c.ctx, c.keys.processing, jobID)
		c.client.SAdd(c.ctx, c.keys.failed, jobID)
		if result != nil {
			data, _ := json.Marshal(result)
			c.client.HSet(c.ctx, c.keys.errors, jobID, data)
		}
	}

	if err := c.client.Publish(c.ctx, c.keys.events, statusEvent(jobID, status, time.Now())).Err(); err != nil {
		c.logger.Warn("Failed to publish job event", "job", jobID, "status", status, "error", err)
	}
}

// GetStats returns queue statistics
func (c *RedisConsumer) GetStats(ctx context.Context) (map[string]int64, error) {
	pipe := c.client.Pipeline()
	waiting := pipe.LLen(ctx, c.keys.list)
	processing := pipe.SCard(ctx, c.keys.processing)
	completed := pipe.SCard(ctx, c.keys.completed)
	failed := pipe.SCard(ctx, c.keys.failed)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}

	return map[string]int64{
		"waiting":    waiting.Val(),
		"processing": processing.Val(),
		"completed":  completed.Val(),
		"failed":     failed.Val(),
	}, nil
}

func statusEvent(jobID, status string, at time.Time) []byte {
	data, _ := json.Marshal(map[string]interface{}{
		"event":     "job:" + status,
		"jobId":     jobID,
		"timestamp": at.UTC().Format(time.RFC3339),
	})
	return data
}

// failurePayload is what lands in the errors hash
func failurePayload(err error, attempts int) map[string]interface{} {
	var pe *apperrors.ProcessingError
	if errors.As(err, &pe) {
		m := pe.ToMap()
		m["attempts"] = attempts
		return m
	}
	return map[string]interface{}{
		"error":    err.Error(),
		"attempts": attempts,
	}
}

// retryable reports whether a failed job may succeed on another attempt.
// Bad input never will.
func retryable(err error) bool {
	if errors.Is(err, ErrInvalidJob) {
		return false
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrorImageConversionFailed, apperrors.ErrorInvalidROI:
		return false
	}
	return true
}
