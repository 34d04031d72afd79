package rabbitmq_producer

import (
	"context"
	"fmt"
	"sync"

	"import-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublisherConfig конфигурация для производителя
type PublisherConfig struct {
	rabbitmq_common.Config
	ExchangeName    string // Имя обменника для публикации
	ExchangeType    string // direct, fanout, topic, headers
	DurableExchange bool

	// Если false, производитель полагается на то, что обменник уже существует
	DeclareExchangeIfMissing bool

	Logger rabbitmq_common.Logger
}

// ChannelSource отдает каналы на общем соединении
type ChannelSource interface {
	GetChannel() (*amqp.Connection, *amqp.Channel, error)
}

// Publisher публикует сообщения в один обменник. Канал переоткрывается,
// если брокер его закрыл.
type Publisher struct {
	config  PublisherConfig
	source  ChannelSource
	mu      sync.Mutex
	channel *amqp.Channel

	Logger rabbitmq_common.Logger
}

// NewPublisher создает производителя и, если нужно, объявляет обменник
func NewPublisher(cfg PublisherConfig, source ChannelSource) (*Publisher, error) {
	logger := rabbitmq_common.OrNoop(cfg.Logger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid base config: %w", err)
	}
	if cfg.DeclareExchangeIfMissing && (cfg.ExchangeName == "" || cfg.ExchangeType == "") {
		return nil, fmt.Errorf("producer: exchange name and type are required when DeclareExchangeIfMissing is true")
	}

	p := &Publisher{config: cfg, source: source, Logger: logger}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.ensureChannel(); err != nil {
		return nil, err
	}
	p.Logger.Debug("Producer ready", "exchange", cfg.ExchangeName)
	return p, nil
}

// ensureChannel вызывается под p.mu
func (p *Publisher) ensureChannel() (*amqp.Channel, error) {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}

	_, ch, err := p.source.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("producer: failed to get channel from manager: %w", err)
	}

	if p.config.DeclareExchangeIfMissing {
		p.Logger.Debug("Declaring exchange", "name", p.config.ExchangeName, "type", p.config.ExchangeType)
		err = ch.ExchangeDeclare(
			p.config.ExchangeName,
			p.config.ExchangeType,
			p.config.DurableExchange,
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("producer: failed to declare exchange '%s': %w", p.config.ExchangeName, err)
		}
	}

	p.channel = ch
	return ch, nil
}

// Publish публикует сообщение
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.ensureChannel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		p.config.ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("producer: failed to publish message: %w", err)
	}
	return nil
}

// Close закрывает канал производителя. Соединением владеет ConnectionManager.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	if err != nil {
		p.Logger.Error(err, "Error closing channel")
		return err
	}
	p.Logger.Info("Producer closed")
	return nil
}
