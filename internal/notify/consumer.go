package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat_platform/internal/identity/domain"
	"chat_platform/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SignupSubject subject of the operator email
const SignupSubject = "New User Signed Up"

var notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "notify",
	Name:      "signup_emails_total",
	Help:      "Signup emails attempted, by result.",
}, []string{"result"})

// Consumer deliver signup notifications to the operator, at most once
type Consumer struct {
	mailer   Mailer
	from     string
	operator string
}

// NewConsumer create Consumer
func NewConsumer(mailer Mailer, from, operator string) *Consumer {
	return &Consumer{mailer: mailer, from: from, operator: operator}
}

// BuildMessage the operator email for n
func (c *Consumer) BuildMessage(n domain.SignupNotification) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", c.operator)
	m.SetHeader("Subject", SignupSubject)
	m.SetBody("text/plain", fmt.Sprintf("A new user signed up.\n\nName: %s\nEmail: %s\nIdentity: %s\nSigned up at: %s\n",
		n.Name, n.Email, n.TokenIdentifier, time.UnixMilli(n.SignedUpAt).UTC().Format(time.RFC3339)))
	return m
}

// Handle one delivery body, failures are logged with the payload and dropped
func (c *Consumer) Handle(body []byte) {
	var n domain.SignupNotification
	if err := json.Unmarshal(body, &n); err != nil {
		logger.Log.Error("decode signup notification", zap.ByteString("payload", body), zap.Error(err))
		notificationsSent.WithLabelValues("malformed").Inc()
		return
	}
	if err := c.mailer.DialAndSend(c.BuildMessage(n)); err != nil {
		logger.Log.Error("send signup email",
			zap.String("name", n.Name),
			zap.String("email", n.Email),
			zap.String("token_identifier", n.TokenIdentifier),
			zap.Error(err))
		notificationsSent.WithLabelValues("error").Inc()
		return
	}
	notificationsSent.WithLabelValues("ok").Inc()
	logger.Log.Info("signup email sent", zap.String("token_identifier", n.TokenIdentifier))
}

// Run drain deliveries until ctx is done or the channel closes
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.Handle(d.Body)
		}
	}
}

// Consume auto-ack subscription on queue
func Consume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	deliveries, err := ch.Consume(queue, "notify_worker", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}
