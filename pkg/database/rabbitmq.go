package database

import (
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"
)

// RabbitRepo definition rabbit repo
type RabbitRepo interface {
	GetRabbit() *amqp.Channel
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitRepo struct {
	channel *amqp.Channel
}

// NewRabbitRepository create a RabbitRepository
func NewRabbitRepository(db *amqp.Channel) RabbitRepo {
	return &rabbitRepo{channel: db}
}

// ConnectRabbitMQWithRetry 嘗試連線到 RabbitMQ
func ConnectRabbitMQWithRetry(d Connection) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for attempt := 1; attempt <= d.RetryCount; attempt++ {
		conn, err = amqp.Dial(d.ConnectStr)
		if err == nil {
			log.Printf("RabbitMQ connected (attempt %d)", attempt)
			return conn, nil
		}

		log.Printf("RabbitMQ connect failed (attempt %d/%d): %v", attempt, d.RetryCount, err)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("connect RabbitMQ after %d attempts: %w", d.RetryCount, err)
}

// GetRabbitMQChannelWithRetry 使用已有的 RabbitMQ 連線嘗試取得 Channel
func GetRabbitMQChannelWithRetry(conn *amqp.Connection, maxRetries int, baseDelay time.Duration) (*amqp.Channel, error) {
	var ch *amqp.Channel
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ch, err = conn.Channel()
		if err == nil {
			return ch, nil
		}

		log.Printf("RabbitMQ channel failed (attempt %d/%d): %v", attempt, maxRetries, err)
		time.Sleep(baseDelay * time.Second)
	}

	return nil, fmt.Errorf("open RabbitMQ channel after %d attempts: %w", maxRetries, err)
}

// DeclareDurableQueue declare the named queue so publisher and consumer agree on it
func DeclareDurableQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

func (r *rabbitRepo) GetRabbit() *amqp.Channel {
	return r.channel
}

func (r *rabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return r.channel.Publish(exchange, key, mandatory, immediate, msg)
}
