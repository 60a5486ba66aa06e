/**
 * Asynq Queue Consumer for the Flight Capture Worker
 *
 * Alternative intake for deployments that already run Asynq. Tasks of type
 * process-capture carry a CaptureJob payload.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	apperrors "github.com/adverant/nexus/flightcapture-worker/internal/errors"
	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
	"github.com/adverant/nexus/flightcapture-worker/internal/processor"
)

// Consumer handles capture tasks from an Asynq queue
type Consumer struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor processor.CaptureProcessorInterface
	config    *ConsumerConfig
	logger    *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Processor         processor.CaptureProcessorInterface
	ProcessingTimeout time.Duration
	MaxImageSize      int64
	Logger            *logging.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("Processor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewLogger("AsynqConsumer")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			// 5s, 10s, 20s ... capped at one minute
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > time.Minute {
					delay = time.Minute
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "error", err)
			}),
			Logger: asynqLogger{logger.Named("asynq")},
		},
	)

	consumer := &Consumer{
		client:    client,
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: cfg.Processor,
		config:    cfg,
		logger:    logger,
	}
	consumer.mux.HandleFunc(TaskTypeCapture, consumer.handleCapture)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Asynq consumer",
		"concurrency", c.config.Concurrency,
		"queue", c.config.QueueName)

	if err := c.server.Start(c.mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}
	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer")
	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}
	return nil
}

// NewCaptureTask wraps a job in an Asynq task
func NewCaptureTask(job *CaptureJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal capture job: %w", err)
	}
	return asynq.NewTask(TaskTypeCapture, payload), nil
}

func (c *Consumer) handleCapture(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var job CaptureJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal capture job: %w: %w", err, asynq.SkipRetry)
	}

	result, err := runCapture(ctx, c.processor, &job, c.config.MaxImageSize, c.config.ProcessingTimeout)
	if err != nil {
		c.logger.Error("Capture failed",
			"job", job.JobID,
			"code", apperrors.CodeOf(err),
			"durationMs", time.Since(start).Milliseconds(),
			"error", err)
		if !retryable(err) {
			return fmt.Errorf("capture %s rejected: %w: %w", job.JobID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("capture %s failed: %w", job.JobID, err)
	}

	if w := task.ResultWriter(); w != nil {
		data, err := json.Marshal(result)
		if err == nil {
			_, err = w.Write(data)
		}
		if err != nil {
			c.logger.Warn("Failed to write task result", "job", job.JobID, "error", err)
		}
	}

	c.logger.Info("Capture completed",
		"job", job.JobID,
		"key", result.Export.Key,
		"durationMs", time.Since(start).Milliseconds())
	return nil
}

// asynqLogger routes asynq's internal logging through the worker logger
type asynqLogger struct {
	l *logging.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

var _ asynq.Logger = asynqLogger{}
