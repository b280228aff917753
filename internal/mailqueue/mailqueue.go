package mailqueue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

const QueueName = "email_queue"

const TypeRosterImportReport = "roster_import_report"

// DeclareQueue 声明持久化的邮件队列，API 和 mail worker 都会调用
func DeclareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		QueueName,
		true,  // 持久化
		false, // 没有消费者时不自动删除
		false, // 允许多个消费者
		false, // 等待 RabbitMQ 确认
		nil,
	)
}

type Publisher struct {
	channel *amqp.Channel
	timeout time.Duration
}

func NewPublisher(ch *amqp.Channel, timeout time.Duration) *Publisher {
	return &Publisher{
		channel: ch,
		timeout: timeout,
	}
}

func (p *Publisher) Publish(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.channel.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
