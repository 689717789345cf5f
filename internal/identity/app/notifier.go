package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat_platform/internal/identity/domain"
	"chat_platform/pkg/database"
	"chat_platform/pkg/identity"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// DefaultSignupQueue queue shared by identity_gateway and notify_worker
const DefaultSignupQueue = "signup_notifications"

type rabbitNotifier struct {
	repo  database.RabbitRepo
	queue string
}

// NewRabbitNotifier publish notifications on the default exchange, routed by queue name
func NewRabbitNotifier(repo database.RabbitRepo, queue string) Notifier {
	if queue == "" {
		queue = DefaultSignupQueue
	}
	return &rabbitNotifier{repo: repo, queue: queue}
}

func (r *rabbitNotifier) Notify(ctx context.Context, n domain.SignupNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return r.repo.Publish("", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.UnixMilli(n.SignedUpAt),
		Body:         body,
	})
}

// MessageWriter the kafka.Writer method the auditor uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaAuditor struct {
	writer MessageWriter
}

// NewKafkaAuditor audit records keyed by normalized subject, so one user's events share a partition
func NewKafkaAuditor(w MessageWriter) Auditor {
	return &kafkaAuditor{writer: w}
}

func (k *kafkaAuditor) Record(ctx context.Context, ev domain.IdentityEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(identity.Normalize(ev.Subject)),
		Value: body,
		Time:  time.UnixMilli(ev.ReceivedAt),
	})
}
