package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// sendTimeout bounds a single email dispatch.
const sendTimeout = 15 * time.Second

// Worker consumes order events and dispatches the corresponding emails.
// Email failures are retried a few times and then dropped with a log line;
// they never surface to the request that caused the event.
type Worker struct {
	consumer sarama.Consumer
	topic    string
	sender   Sender
	logger   *zap.Logger
}

// NewConsumer creates a Kafka consumer for the order events topic.
func NewConsumer(brokers []string, logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = 1 * time.Second

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	logger.Info("kafka consumer initialized", zap.Strings("brokers", brokers))
	return consumer, nil
}

// NewWorker wires a consumer, topic and sender into a mail worker.
func NewWorker(consumer sarama.Consumer, topic string, sender Sender, logger *zap.Logger) *Worker {
	return &Worker{consumer: consumer, topic: topic, sender: sender, logger: logger}
}

// Run consumes the topic until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	pc, err := w.consumer.ConsumePartition(w.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("consume partition: %w", err)
	}
	defer pc.Close()

	w.logger.Info("mailer worker started", zap.String("topic", w.topic))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-pc.Messages():
			if err := w.handleWithRetry(ctx, msg, 3); err != nil {
				w.logger.Error("email dispatch abandoned", zap.Error(err))
			}
		case err := <-pc.Errors():
			w.logger.Error("kafka consumer error", zap.Error(err))
		}
	}
}

func (w *Worker) handleWithRetry(ctx context.Context, msg *sarama.ConsumerMessage, maxRetries int) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := w.handle(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			w.logger.Warn("retrying email dispatch",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (w *Worker) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev OrderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}
	if ev.CustomerEmail == "" {
		w.logger.Warn("order event without recipient", zap.Int64("order_id", ev.OrderID))
		return nil
	}

	subject, body := compose(ev)
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, ev.CustomerEmail, subject, body); err != nil {
		return err
	}
	w.logger.Info("email sent",
		zap.String("type", ev.Type),
		zap.String("to", ev.CustomerEmail),
		zap.Int64("order_id", ev.OrderID),
	)
	return nil
}
