package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriterWithRetry 確認 broker 可連線後建立 Kafka Writer
func NewKafkaWriterWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	var err error
	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		var conn *kafka.Conn
		conn, err = kafka.DialContext(ctx, "tcp", k.Brokers[0])
		if err == nil {
			_, err = conn.Brokers()
			conn.Close()
		}
		if err == nil {
			log.Printf("Kafka broker reachable (attempt %d)", attempt)
			return newKafkaWriter(k), nil
		}

		log.Printf("Kafka dial failed (attempt %d/%d): %v", attempt, k.RetryCount, err)
		time.Sleep(k.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("kafka writer after %d attempts: %w", k.RetryCount, err)
}

// newKafkaWriter 審計一次只寫一筆, 縮短批次等待並限制重試
func newKafkaWriter(k KafkaConnection) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(k.Brokers...),
		Topic:                  k.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
	}
}
