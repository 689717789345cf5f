package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	_ "chat_platform/cmd/chat_service/docs" // 引入 Swagger 文档
	"chat_platform/internal/api/handlers"
	"chat_platform/internal/api/router"
	chatapp "chat_platform/internal/chat/app"
	chatrepo "chat_platform/internal/chat/repository"
	dirapp "chat_platform/internal/directory/app"
	dirrepo "chat_platform/internal/directory/repository"
	storageapp "chat_platform/internal/storage/app"
	"chat_platform/pkg/config"
	"chat_platform/pkg/database"
	"chat_platform/pkg/logger"
	"chat_platform/pkg/middlewares"
	"chat_platform/pkg/proto/lifecycle"
	testtool "chat_platform/pkg/test_tool"
	t_token "chat_platform/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	logger.Log.SetDebugMode(config.IsLocal()) // 本機開發輸出 debug log
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	ctx := context.Background()

	// 1. Mongo (conversations / messages)
	uri := database.MongoURI(cfg.MongoSQL.Host, cfg.MongoSQL.Port, cfg.MongoSQL.User, cfg.MongoSQL.Password)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. PostgreSQL (users / tags / genders)
	pg := database.Connection{
		ConnectStr: database.PostgresDSN(cfg.PostgreSQL.Host, cfg.PostgreSQL.Port,
			cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database),
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	}
	pool, err := database.NewDatabaseConnection(pg)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	gormDB, err := database.NewGormConnection(pg)
	if err != nil {
		logger.Log.Fatal("Unable to open gorm connection", zap.Error(err))
	}

	// 3. Redis (Pub/Sub + url cache)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	defer redisClient.Close()

	// 4. MinIO (uploads)
	blob, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		PublicURL:     cfg.MinIO.PublicURL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to minIO", zap.String("endpoint", cfg.MinIO.Endpoint), zap.Error(err))
	}

	// 5. Repository
	userRepo := dirrepo.NewUserRepository(pool)
	tagRepo := dirrepo.NewTagRepository(gormDB)
	genderRepo := dirrepo.NewGenderRepository(gormDB)
	convRepo := chatrepo.NewMongoConversationRepository(mongo.Database)
	memberRepo := chatrepo.NewMongoMembershipRepository(mongo.Database)
	msgRepo := chatrepo.NewMongoMessageRepository(mongo.Database)
	readRepo := chatrepo.NewMongoReadMarkRepository(mongo.Database)
	pub := chatrepo.NewRedisPubSub(redisClient)

	if err := userRepo.Migrate(ctx); err != nil {
		logger.Log.Fatal("migrate users failed", zap.Error(err))
	}
	if err := tagRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("migrate tags failed", zap.Error(err))
	}
	if err := genderRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("migrate genders failed", zap.Error(err))
	}
	for name, ensure := range map[string]func(context.Context) error{
		"conversations": convRepo.EnsureIndexes,
		"memberships":   memberRepo.EnsureIndexes,
		"messages":      msgRepo.EnsureIndexes,
		"read_marks":    readRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.Log.Fatal("ensure mongo indexes failed", zap.String("collection", name), zap.Error(err))
		}
	}

	// 6. UseCases
	storageUC := storageapp.NewStorageUseCase(blob,
		database.NewRedisRepository[string](redisClient, "storage_url:"),
		cfg.MinIO.UploadExpiry, cfg.Redis.URLCache)
	directoryUC := dirapp.NewDirectoryUseCase(userRepo, tagRepo, genderRepo, storageUC, cfg.Directory.MaxUsernameSuffix)
	searchUC := dirapp.NewSearchUseCase(userRepo, tagRepo, storageUC, cfg.Directory.SearchLimit)
	conversationUC := chatapp.NewConversationUseCase(convRepo, memberRepo, msgRepo, readRepo, pub,
		directoryUC, storageUC, cfg.Messaging.FanOutLimit)
	messageUC := chatapp.NewMessageUseCase(memberRepo, msgRepo, pub, directoryUC, storageUC)

	verifier := newVerifier(ctx, cfg.Auth)

	// 7. gRPC lifecycle server (called by identity_gateway)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("Failed to listen Port(%s): ", cfg.GRPCPort), zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	lifecycle.RegisterUserLifecycleServer(grpcServer, &dirapp.LifecycleGRPCServer{Usecase: directoryUC})
	go func() {
		logger.Log.Info(fmt.Sprintf("Lifecycle gRPC server listening on : %s", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Log.Fatal("Failed to serve gRPC server", zap.Error(err))
		}
	}()
	defer grpcServer.GracefulStop()

	testtool.StartPprof("")

	// 8. Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	router.RegisterRoutes(r, router.Handlers{
		Users:         handlers.NewUserHandler(directoryUC, searchUC),
		Conversations: handlers.NewConversationHandler(conversationUC, messageUC),
		Storage:       handlers.NewStorageHandler(storageUC),
		Websocket:     chatapp.NewChatWebsocketHandler(conversationUC, directoryUC, pub),
	}, verifier, middlewares.NewKeyedLimiter(cfg.Messaging.MessagesPerSecond, cfg.Messaging.Burst))

	port := ":" + cfg.Port
	logger.Log.Info(fmt.Sprintf("Chat Service listening on %s", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}

// newVerifier JWKS when configured, otherwise the shared HMAC secret (local / test)
func newVerifier(ctx context.Context, auth config.AuthConfig) *t_token.Verifier {
	if auth.JWKSURL != "" {
		v, err := t_token.NewJWKSVerifier(ctx, auth.JWKSURL, auth.Issuer)
		if err != nil {
			logger.Log.Fatal("load jwks failed", zap.String("url", auth.JWKSURL), zap.Error(err))
		}
		return v
	}
	if auth.HMACSecret == "" {
		logger.Log.Fatal("auth: neither jwks_url nor hmac_secret configured")
	}
	logger.Log.Warn("auth: using HMAC secret verifier")
	return t_token.NewHMACVerifier([]byte(auth.HMACSecret), auth.Issuer)
}
