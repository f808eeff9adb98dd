package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"productcatalog/catalog-worker-service/internal/app/catalog-worker/entity"
	"productcatalog/catalog-worker-service/internal/app/catalog-worker/service"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

const (
	metricsService = "catalog-worker"

	defaultRetryMin = 500 * time.Millisecond
	defaultRetryMax = 30 * time.Second
)

// errMalformedEvent сообщение не разбирается как событие, повтор не поможет
var errMalformedEvent = errors.New("malformed product event")

// messageReader часть kafka.Reader, которой пользуется consumer
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

// KafkaConsumer обрабатывает события из Kafka топика product_events.
// Offset коммитится только после обработки: сообщение с ошибкой хранилища
// повторяется, пока не будет сохранено, следующие сообщения партиции ждут
type KafkaConsumer struct {
	reader   messageReader
	topic    string
	groupID  string
	eventSvc service.EventServiceInterface
	retryMin time.Duration
	retryMax time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewKafkaConsumer создает новый Kafka consumer
func NewKafkaConsumer(
	brokers []string,
	topic string,
	groupID string,
	minBytes int,
	maxBytes int,
	eventSvc service.EventServiceInterface,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: minBytes,
		MaxBytes: maxBytes,
		// История должна быть полной, поэтому новая группа читает топик с начала
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
	})

	return &KafkaConsumer{
		reader:   reader,
		topic:    topic,
		groupID:  groupID,
		eventSvc: eventSvc,
		retryMin: defaultRetryMin,
		retryMax: defaultRetryMax,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	logger.Info().
		Str("topic", c.topic).
		Str("group_id", c.groupID).
		Msg("Starting Kafka consumer")

	go c.consume(ctx)
}

// Stop останавливает consumer и дожидается обработки текущего сообщения
func (c *KafkaConsumer) Stop() {
	logger.Info().Msg("Stopping Kafka consumer...")
	close(c.stopChan)
	<-c.doneChan
	if err := c.reader.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close Kafka reader")
	}
	logger.Info().Msg("Kafka consumer stopped")
}

// consume читает и обрабатывает сообщения из Kafka
func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
			readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			message, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Таймаут ожидания при пустом топике не считаем ошибкой
				if readCtx.Err() == context.DeadlineExceeded {
					continue
				}

				logger.Error().Err(err).Msg("Error fetching message")
				metrics.RecordKafkaError(metricsService, c.topic, "fetch")
				time.Sleep(time.Second)
				continue
			}

			if !c.handle(ctx, message) {
				// Остановлены до успешной обработки: offset не коммитим
				return
			}

			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Error().Err(err).Msg("Error committing message")
				metrics.RecordKafkaError(metricsService, c.topic, "commit")
			}
		}
	}
}

// handle обрабатывает сообщение, повторяя попытки с растущей паузой.
// Битое сообщение пропускается. Возвращает false, если consumer
// остановили раньше, чем сообщение удалось обработать
func (c *KafkaConsumer) handle(ctx context.Context, message kafka.Message) bool {
	msgLog := logger.With().
		Str("topic", message.Topic).
		Int("partition", message.Partition).
		Int64("offset", message.Offset).
		Logger()

	backoff := c.retryMin
	for attempt := 1; ; attempt++ {
		start := time.Now()
		err := c.processMessage(ctx, message)
		if err == nil {
			metrics.RecordKafkaMessageConsumed(metricsService, c.topic, c.groupID, time.Since(start))
			return true
		}

		if errors.Is(err, errMalformedEvent) {
			msgLog.Warn().Err(err).Msg("Skipping malformed message")
			metrics.RecordKafkaError(metricsService, c.topic, "decode")
			return true
		}

		msgLog.Error().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", backoff).
			Msg("Error processing message, retrying")
		metrics.RecordKafkaError(metricsService, c.topic, "process")

		select {
		case <-c.stopChan:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.retryMax)
	}
}

// processMessage обрабатывает одно сообщение из Kafka
func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	var event entity.ProductEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal product event: %w: %w", errMalformedEvent, err)
	}

	logger.Debug().
		Str("event_type", event.EventType).
		Str("product_id", event.ProductID.String()).
		Int64("offset", message.Offset).
		Int("partition", message.Partition).
		Msg("Received product event")

	meta := entity.MessageMeta{
		Topic:     message.Topic,
		Partition: message.Partition,
		Offset:    message.Offset,
	}
	if err := c.eventSvc.ProcessEvent(ctx, &event, meta); err != nil {
		return fmt.Errorf("failed to process product event: %w", err)
	}

	return nil
}

// GetStats возвращает статистику consumer
func (c *KafkaConsumer) GetStats() kafka.ReaderStats {
	return c.reader.Stats()
}
