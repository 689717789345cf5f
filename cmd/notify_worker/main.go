package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"chat_platform/internal/notify"
	"chat_platform/pkg/config"
	"chat_platform/pkg/database"
	"chat_platform/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.NotifyWorker, config.EnvConfig.NotifyWorkerLogPath)
	logger.Log.SetDebugMode(config.IsLocal()) // 本機開發輸出 debug log
	cfg := config.LoadConfig[config.NotifyWorker](config.EnvConfig.NotifyWorker, config.EnvConfig.NotifyWorkerYAMLPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    cfg.RabbitMQ.URL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	ch, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval)*time.Second)
	if err != nil {
		logger.Log.Fatal("Unable to open RabbitMQ channel", zap.Error(err))
	}
	defer ch.Close()

	if err := database.DeclareDurableQueue(ch, cfg.RabbitMQ.Queue); err != nil {
		logger.Log.Fatal("declare queue failed", zap.String("queue", cfg.RabbitMQ.Queue), zap.Error(err))
	}
	deliveries, err := notify.Consume(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Log.Fatal("consume failed", zap.Error(err))
	}

	consumer := notify.NewConsumer(notify.NewSMTPMailer(cfg.SMTP), cfg.SMTP.From, cfg.OperatorEmail)
	logger.Log.Info("notify worker consuming", zap.String("queue", cfg.RabbitMQ.Queue))
	if err := consumer.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Error("notify worker stopped", zap.Error(err))
	}
}
