package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"import-service/internal/constants"
	"import-service/internal/contextkeys"
	"import-service/internal/contracts"
	"import-service/internal/core/domain"
	"import-service/internal/core/port"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher - часть rabbitmq_producer.Publisher, нужная адаптеру
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// ImportReporter - реализация ImportReporterPort для RabbitMQ
type ImportReporter struct {
	producer Publisher
}

// NewImportReporter - конструктор
func NewImportReporter(producer Publisher) (*ImportReporter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	return &ImportReporter{producer: producer}, nil
}

func (a *ImportReporter) ReportListImported(ctx context.Context, list *domain.ListAggregate) error {
	return a.publish(ctx, constants.ListCreatedRoutingKey, constants.ListCreatedEventType, toListCreatedEvent(list), port.Fields{
		"list_id": list.ID.String(),
	})
}

func (a *ImportReporter) ReportJobFinished(ctx context.Context, job *domain.ImportJob) error {
	return a.publish(ctx, constants.JobFinishedRoutingKey, constants.JobFinishedEventType, toJobFinishedEvent(job), port.Fields{
		"job_id": job.ID.String(),
		"stage":  string(job.Stage),
	})
}

func (a *ImportReporter) publish(ctx context.Context, routingKey, eventType string, event interface{}, fields port.Fields) error {
	adapterLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "ImportReporter",
		"routing_key": routingKey,
	}).WithFields(fields)

	body, err := json.Marshal(event)
	if err != nil {
		adapterLogger.Error("Failed to marshal event", err, nil)
		return fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}

	// Исходящее событие проверяется той же схемой, что и у потребителей
	if err := contracts.ValidateJSON(eventType+"/"+constants.EventVersion, body); err != nil {
		adapterLogger.Error("Event does not match its schema", err, nil)
		return fmt.Errorf("rabbitmq adapter: %s: %w", eventType, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"x-event-type":    eventType,
			"x-event-version": constants.EventVersion,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish %s: %w", eventType, err)
	}

	adapterLogger.Debug("Event published", nil)
	return nil
}

var _ port.ImportReporterPort = (*ImportReporter)(nil)

// NoopReporter используется, когда RabbitMQ выключен
type NoopReporter struct{}

func (NoopReporter) ReportListImported(context.Context, *domain.ListAggregate) error { return nil }
func (NoopReporter) ReportJobFinished(context.Context, *domain.ImportJob) error       { return nil }

var _ port.ImportReporterPort = NoopReporter{}
