package handlers

import (
	chatapp "chat_platform/internal/chat/app"
	"chat_platform/internal/chat/domain"
	"chat_platform/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// ConversationHandler 處理 conversation 與 message 的 HTTP 請求
type ConversationHandler struct {
	Conversations chatapp.ConversationUseCase
	Messages      chatapp.MessageUseCase
}

// NewConversationHandler create ConversationHandler
func NewConversationHandler(conversations chatapp.ConversationUseCase, messages chatapp.MessageUseCase) *ConversationHandler {
	return &ConversationHandler{Conversations: conversations, Messages: messages}
}

// TextMessageRequest body of a text send
type TextMessageRequest struct {
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
}

// MediaMessageRequest body of an image or video send
type MediaMessageRequest struct {
	StorageID string `json:"storage_id"`
	Sender    string `json:"sender,omitempty"`
}

// CreateConversation
// @Summary Create conversation
// @Description A one-to-one with an existing pair returns that conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body domain.CreateConversationInput true "conversation"
// @Success 200 {object} domain.ConversationView
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/conversations [post]
func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	var in domain.CreateConversationInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request")
	}
	view, err := h.Conversations.CreateConversation(c.UserContext(), middlewares.CallerIdentity(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

// GetMyConversations
// @Summary My conversations
// @Tags Conversations
// @Produce json
// @Success 200 {array} domain.ConversationView
// @Router /api/conversations [get]
func (h *ConversationHandler) GetMyConversations(c *fiber.Ctx) error {
	views, err := h.Conversations.GetMyConversations(c.UserContext(), middlewares.CallerIdentity(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(views)
}

// GetConversationByID
// @Summary Conversation by id
// @Tags Conversations
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.ConversationView
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/conversations/{id} [get]
func (h *ConversationHandler) GetConversationByID(c *fiber.Ctx) error {
	view, err := h.Conversations.GetConversationByID(c.UserContext(), middlewares.CallerIdentity(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(view)
}

// GetGroupMembers
// @Summary Conversation members
// @Tags Conversations
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {array} dirdomain.User
// @Router /api/conversations/{id}/members [get]
func (h *ConversationHandler) GetGroupMembers(c *fiber.Ctx) error {
	users, err := h.Conversations.GetGroupMembers(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// SetConversationLastRead
// @Summary Mark conversation read
// @Tags Conversations
// @Param id path string true "conversation id"
// @Success 204
// @Router /api/conversations/{id}/read [post]
func (h *ConversationHandler) SetConversationLastRead(c *fiber.Ctx) error {
	if err := h.Conversations.SetConversationLastRead(c.UserContext(), middlewares.CallerIdentity(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// KickUser
// @Summary Remove a group member
// @Tags Conversations
// @Param id path string true "conversation id"
// @Param userId path string true "user id"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Router /api/conversations/{id}/members/{userId} [delete]
func (h *ConversationHandler) KickUser(c *fiber.Ctx) error {
	if err := h.Conversations.KickUser(c.UserContext(), middlewares.CallerIdentity(c), c.Params("id"), c.Params("userId")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SendTextMessage
// @Summary Send text
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body TextMessageRequest true "message"
// @Success 200 {object} domain.Message
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/conversations/{id}/messages/text [post]
func (h *ConversationHandler) SendTextMessage(c *fiber.Ctx) error {
	var req TextMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	msg, err := h.Messages.SendTextMessage(c.UserContext(), middlewares.CallerIdentity(c), c.Params("id"), req.Content, req.Sender)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msg)
}

// SendImage
// @Summary Send image
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body MediaMessageRequest true "image"
// @Success 200 {object} domain.Message
// @Router /api/conversations/{id}/messages/image [post]
func (h *ConversationHandler) SendImage(c *fiber.Ctx) error {
	var req MediaMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	msg, err := h.Messages.SendImage(c.UserContext(), middlewares.CallerIdentity(c), c.Params("id"), req.StorageID, req.Sender)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msg)
}

// SendVideo
// @Summary Send video
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Param request body MediaMessageRequest true "video"
// @Success 200 {object} domain.Message
// @Router /api/conversations/{id}/messages/video [post]
func (h *ConversationHandler) SendVideo(c *fiber.Ctx) error {
	var req MediaMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	msg, err := h.Messages.SendVideo(c.UserContext(), middlewares.CallerIdentity(c), c.Params("id"), req.StorageID, req.Sender)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msg)
}

// GetMessages
// @Summary Conversation messages
// @Tags Messages
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {array} domain.MessageView
// @Router /api/conversations/{id}/messages [get]
func (h *ConversationHandler) GetMessages(c *fiber.Ctx) error {
	msgs, err := h.Messages.GetMessages(c.UserContext(), middlewares.CallerIdentity(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msgs)
}
