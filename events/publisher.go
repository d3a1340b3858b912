package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/BerniceZTT/crm_followup/utils"
)

// Publisher 领域事件发布
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// AMQPConfig 消息队列配置
type AMQPConfig struct {
	URL                string
	Exchange           string
	ConnTimeoutSeconds int
}

// AMQPPublisher 发布到topic交换机，路由键即事件类型
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPPublisher 建立连接并声明交换机
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("AMQP地址不能为空")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "crm.followups"
	}
	timeout := cfg.ConnTimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Dial: amqp.DefaultDial(time.Duration(timeout) * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("打开channel失败: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明交换机失败: %w", err)
	}

	utils.Logger.Info().Str("exchange", cfg.Exchange).Msg("已连接到RabbitMQ")
	return &AMQPPublisher{conn: conn, exchange: cfg.Exchange, ch: ch}, nil
}

// Publish 以持久化消息发布事件
func (p *AMQPPublisher) Publish(ctx context.Context, env Envelope) error {
	if env.Meta.ID == "" {
		return fmt.Errorf("envelope.Meta.ID is required")
	}
	if env.Meta.Time.IsZero() {
		env.Meta.Time = time.Now().UTC()
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	correlationID := env.Meta.ID
	if env.Meta.CorrelationID != nil && *env.Meta.CorrelationID != "" {
		correlationID = *env.Meta.CorrelationID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, env.Meta.Type, false, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: correlationID,
		Type:          env.Meta.Type,
		Timestamp:     env.Meta.Time,
		AppId:         producer,
	})
}

// Close 关闭连接
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}

// LogPublisher 未配置消息队列时只写日志
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, env Envelope) error {
	utils.Logger.Debug().
		Str("type", env.Meta.Type).
		Str("id", env.Meta.ID).
		Interface("data", env.Data).
		Msg("领域事件(未配置消息队列)")
	return nil
}

func (LogPublisher) Close() error { return nil }

// RecordingPublisher 在内存中记录事件，测试使用
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *RecordingPublisher) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, env)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

// Types 已记录事件的类型
func (r *RecordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Meta.Type)
	}
	return out
}
