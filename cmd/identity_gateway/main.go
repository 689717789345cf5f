package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_platform/internal/api/handlers"
	"chat_platform/internal/identity/app"
	"chat_platform/internal/identity/handler"
	"chat_platform/pkg/config"
	"chat_platform/pkg/database"
	"chat_platform/pkg/logger"
	"chat_platform/pkg/proto/lifecycle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.IdentityGateway, config.EnvConfig.IdentityGatewayLogPath)
	logger.Log.SetDebugMode(config.IsLocal()) // 本機開發輸出 debug log
	cfg := config.LoadConfig[config.IdentityGateway](config.EnvConfig.IdentityGateway, config.EnvConfig.IdentityGatewayYAMLPath)
	ctx := context.Background()

	wh, err := svix.NewWebhook(cfg.WebhookSecret)
	if err != nil {
		logger.Log.Fatal("invalid webhook secret", zap.Error(err))
	}

	// 1. chat service lifecycle gRPC
	chatGRPC, err := database.CreateGRPCClient(cfg.ChatService.Name+":"+cfg.ChatService.Port, 30*time.Second)
	if err != nil {
		logger.Log.Fatal("create chat GRPC err", zap.Error(err))
	}
	defer chatGRPC.Close()
	lc := app.NewGRPCLifecycle(lifecycle.NewUserLifecycleClient(chatGRPC))

	// 2. RabbitMQ (signup notifications)
	rabbitConn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    cfg.RabbitMQ.URL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	ch, err := database.GetRabbitMQChannelWithRetry(rabbitConn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval)*time.Second)
	if err != nil {
		logger.Log.Fatal("Unable to open RabbitMQ channel", zap.Error(err))
	}
	defer ch.Close()

	queue := cfg.RabbitMQ.Queue
	if queue == "" {
		queue = app.DefaultSignupQueue
	}
	if err := database.DeclareDurableQueue(ch, queue); err != nil {
		logger.Log.Fatal("declare queue failed", zap.String("queue", queue), zap.Error(err))
	}
	notifier := app.NewRabbitNotifier(database.NewRabbitRepository(ch), queue)

	// 3. Kafka audit trail, optional
	var auditor app.Auditor
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(ctx, database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("Unable to connect to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}
		defer writer.Close()
		auditor = app.NewKafkaAuditor(writer)
	} else {
		logger.Log.Info("kafka brokers not configured, audit trail disabled")
	}

	uc := app.NewWebhookUseCase(lc, notifier, auditor, cfg.NotifyTimeout)
	webhook := handler.NewWebhookHandler(wh, uc)

	// 4. Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.IdentityGatewayLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	r.Get("/", handlers.ConnectCheck)
	r.Post("/debug", handlers.DebugLogFlag)
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	r.Post("/clerk", webhook.Clerk)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down identity gateway")
		if err := r.Shutdown(); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info(fmt.Sprintf("Identity Gateway listening on %s", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}

	// 等待背景寄信完成
	uc.Wait()
}
