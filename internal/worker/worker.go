package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aescanero/dago-rule-engine/internal/config"
	"github.com/aescanero/dago-rule-engine/internal/rule"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Evaluator evaluates a stored rule by name.
type Evaluator interface {
	EvaluateRule(ctx context.Context, ref string, data rule.Record) (bool, error)
}

// Worker answers evaluation requests read from a Redis stream
type Worker struct {
	id            string
	redisClient   redis.Cmdable
	evaluator     Evaluator
	logger        *zap.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	streamKey     string
	consumerGroup string
	resultStream  string
	blockTime     time.Duration
	now           func() time.Time
}

// NewWorker creates a new worker
func NewWorker(cfg *config.Config, redisClient redis.Cmdable, evaluator Evaluator, logger *zap.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		id:            cfg.WorkerID,
		redisClient:   redisClient,
		evaluator:     evaluator,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		streamKey:     cfg.StreamKey,
		consumerGroup: cfg.ConsumerGroup,
		resultStream:  cfg.ResultStream,
		blockTime:     cfg.BlockTime,
		now:           time.Now,
	}
}

// Start starts the worker
func (w *Worker) Start() error {
	w.logger.Info("starting evaluation worker",
		zap.String("worker_id", w.id),
		zap.String("stream_key", w.streamKey),
		zap.String("consumer_group", w.consumerGroup),
	)

	if err := w.ensureConsumerGroup(); err != nil {
		return fmt.Errorf("failed to ensure consumer group: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.recoverPending()
		w.processWork()
	}()

	w.logger.Info("evaluation worker started", zap.String("worker_id", w.id))
	return nil
}

// Stop stops the worker and waits for the in-flight message, bounded by ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("stopping evaluation worker", zap.String("worker_id", w.id))

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.logger.Info("evaluation worker stopped", zap.String("worker_id", w.id))
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist
func (w *Worker) ensureConsumerGroup() error {
	err := w.redisClient.XGroupCreateMkStream(w.ctx, w.streamKey, w.consumerGroup, "0").Err()
	if err != nil {
		// BUSYGROUP means the group already exists
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			w.logger.Debug("consumer group already exists",
				zap.String("group", w.consumerGroup),
			)
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	w.logger.Info("created consumer group",
		zap.String("group", w.consumerGroup),
		zap.String("stream", w.streamKey),
	)
	return nil
}

// processWork reads the stream until the worker is stopped
func (w *Worker) processWork() {
	w.logger.Info("starting work processing loop")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("work processing loop stopped")
			return
		default:
		}

		streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
			Group:    w.consumerGroup,
			Consumer: w.id,
			Streams:  []string{w.streamKey, ">"},
			Count:    10,
			Block:    w.blockTime,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || w.ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to read from stream", zap.Error(err))
			select {
			case <-w.ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		w.handleBatch(streams)
	}
}

// recoverPending replays entries delivered to this consumer but never
// acknowledged, e.g. because the previous run stopped mid-batch or failed to
// publish a result.
func (w *Worker) recoverPending() {
	cursor := "0"
	for w.ctx.Err() == nil {
		streams, err := w.redisClient.XReadGroup(w.ctx, &redis.XReadGroupArgs{
			Group:    w.consumerGroup,
			Consumer: w.id,
			Streams:  []string{w.streamKey, cursor},
			Count:    10,
			Block:    -1,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && w.ctx.Err() == nil {
				w.logger.Error("failed to read pending entries", zap.Error(err))
			}
			return
		}

		count := 0
		for _, stream := range streams {
			count += len(stream.Messages)
			if n := len(stream.Messages); n > 0 {
				cursor = stream.Messages[n-1].ID
			}
		}
		if count == 0 {
			return
		}

		w.logger.Info("replaying pending entries", zap.Int("count", count))
		w.handleBatch(streams)
	}
}

// handleBatch handles messages in order. Once the worker is stopping the rest
// of the batch stays pending for the next start.
func (w *Worker) handleBatch(streams []redis.XStream) {
	for _, stream := range streams {
		for i, message := range stream.Messages {
			if w.ctx.Err() != nil {
				w.logger.Info("worker stopping, leaving entries pending",
					zap.Int("pending", len(stream.Messages)-i),
				)
				return
			}
			w.handleMessage(message)
		}
	}
}

// handleMessage evaluates one request, publishes its result and acknowledges it.
// Malformed requests are acknowledged without a result.
func (w *Worker) handleMessage(message redis.XMessage) {
	messageID := message.ID

	request, err := parseRequest(message.Values)
	if err != nil {
		w.logger.Error("failed to parse evaluation request",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		w.acknowledgeMessage(messageID)
		return
	}

	// The in-flight message is finished even while stopping.
	result, evalErr := w.evaluator.EvaluateRule(context.WithoutCancel(w.ctx), request.RuleName, request.Data)
	if evalErr != nil {
		w.logger.Warn("evaluation failed",
			zap.String("message_id", messageID),
			zap.String("request_id", request.RequestID),
			zap.String("rule_name", request.RuleName),
			zap.Error(evalErr),
		)
	}

	if err := w.publishResult(buildResult(request, result, evalErr, w.now())); err != nil {
		// Left pending; replayed on the next start.
		w.logger.Error("failed to publish evaluation result",
			zap.String("message_id", messageID),
			zap.String("request_id", request.RequestID),
			zap.Error(err),
		)
		return
	}

	w.acknowledgeMessage(messageID)
}

// Request is an evaluation request carried in the "data" field of a stream entry.
type Request struct {
	RequestID string      `json:"request_id"`
	RuleName  string      `json:"rule_name"`
	Data      rule.Record `json:"data"`
}

// Result is published to the result stream for every request.
type Result struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	RuleName  string    `json:"rule_name"`
	Result    bool      `json:"result"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// parseRequest parses an evaluation request from a Redis message
func parseRequest(values map[string]interface{}) (*Request, error) {
	dataStr, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var request Request
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation request: %w", err)
	}
	if strings.TrimSpace(request.RuleName) == "" {
		return nil, fmt.Errorf("missing 'rule_name'")
	}
	if request.RequestID == "" {
		request.RequestID = uuid.New().String()
	}

	return &request, nil
}

func buildResult(request *Request, result bool, err error, now time.Time) *Result {
	r := &Result{
		ID:        uuid.New().String(),
		RequestID: request.RequestID,
		RuleName:  request.RuleName,
		Result:    result,
		Timestamp: now.UTC(),
	}
	if err != nil {
		r.Result = false
		r.Error = err.Error()
	}
	return r
}

// publishResult publishes a result to the result stream
func (w *Worker) publishResult(result *Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	// Results are written even while stopping.
	_, err = w.redisClient.XAdd(context.WithoutCancel(w.ctx), &redis.XAddArgs{
		Stream: w.resultStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	w.logger.Debug("published evaluation result",
		zap.String("request_id", result.RequestID),
		zap.String("rule_name", result.RuleName),
		zap.Bool("result", result.Result),
	)
	return nil
}

// acknowledgeMessage acknowledges a message from the stream
func (w *Worker) acknowledgeMessage(messageID string) {
	err := w.redisClient.XAck(context.WithoutCancel(w.ctx), w.streamKey, w.consumerGroup, messageID).Err()
	if err != nil {
		w.logger.Error("failed to acknowledge message",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
