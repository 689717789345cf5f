package router

import (
	"context"

	chatapp "chat_platform/internal/chat/app"
	"chat_platform/internal/api/handlers"
	"chat_platform/pkg/middlewares"
	t_token "chat_platform/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers everything RegisterRoutes mounts
type Handlers struct {
	Users         *handlers.UserHandler
	Conversations *handlers.ConversationHandler
	Storage       *handlers.StorageHandler
	Websocket     *chatapp.ChatWebsocketHandler
}

// RegisterRoutes 注册 chat service 路由
// @title Chat Platform API
// @version 1.0
// @description API documentation for the chat service
// @host localhost:8080
// @BasePath /
func RegisterRoutes(app *fiber.App, h Handlers, verifier *t_token.Verifier, limiter *middlewares.KeyedLimiter) {
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/", handlers.ConnectCheck)
	app.Post("/debug", handlers.DebugLogFlag)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middlewares.JWTMiddleware(verifier))

	users := api.Group("/users")
	users.Get("/", h.Users.GetUsers)
	users.Get("/me", h.Users.GetMe)
	users.Put("/me", h.Users.UpdateProfile)
	users.Get("/online", h.Users.GetOnlineUsers)
	users.Get("/availability", h.Users.CheckUsernameAvailability)
	users.Get("/username/:username", h.Users.GetUserByUsername)
	users.Get("/:id", h.Users.GetUserByID)
	api.Get("/genders", h.Users.GetAllGenders)

	search := api.Group("/search")
	search.Get("/users", h.Users.SearchUsersByTerm)
	search.Get("/users/name", h.Users.SearchUsersByName)
	search.Get("/tags", h.Users.SearchTagsByTerm)
	search.Get("/tags/:tag/users", h.Users.SearchUsersByTag)

	conv := api.Group("/conversations")
	conv.Post("/", h.Conversations.CreateConversation)
	conv.Get("/", h.Conversations.GetMyConversations)
	conv.Get("/:id", h.Conversations.GetConversationByID)
	conv.Get("/:id/members", h.Conversations.GetGroupMembers)
	conv.Delete("/:id/members/:userId", h.Conversations.KickUser)
	conv.Post("/:id/read", h.Conversations.SetConversationLastRead)
	conv.Get("/:id/messages", h.Conversations.GetMessages)

	limit := middlewares.RateLimit(limiter)
	conv.Post("/:id/messages/text", limit, h.Conversations.SendTextMessage)
	conv.Post("/:id/messages/image", limit, h.Conversations.SendImage)
	conv.Post("/:id/messages/video", limit, h.Conversations.SendVideo)

	api.Post("/storage/upload-url", h.Storage.GenerateUploadURL)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(func(c *websocket.Conn) {
		h.Websocket.HandleConnection(context.Background(), c)
	}))
}
