package handler

import (
	"encoding/json"
	"net/http"

	"chat_platform/internal/identity/app"
	"chat_platform/internal/identity/domain"
	"chat_platform/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var webhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "identity",
	Name:      "webhooks_total",
	Help:      "Provider webhooks received, by event type and result.",
}, []string{"type", "result"})

// svix header names
const (
	HeaderID        = "svix-id"
	HeaderSignature = "svix-signature"
	HeaderTimestamp = "svix-timestamp"
)

// Verifier signature check, satisfied by *svix.Webhook
type Verifier interface {
	Verify(payload []byte, headers http.Header) error
}

// WebhookHandler 處理 identity provider webhook
type WebhookHandler struct {
	Verifier Verifier
	Usecase  app.WebhookUseCase
}

// NewWebhookHandler create WebhookHandler
func NewWebhookHandler(v Verifier, uc app.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{Verifier: v, Usecase: uc}
}

// Clerk receive a signed provider event
// @Summary Identity provider webhook
// @Description Verify the svix signature and sync the user directory
// @Tags Identity
// @Accept json
// @Param svix-id header string true "message id"
// @Param svix-signature header string true "signature"
// @Param svix-timestamp header string true "timestamp"
// @Success 200 "processed"
// @Failure 400 {string} string "Webhook Error"
// @Router /clerk [post]
func (h *WebhookHandler) Clerk(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	headers := http.Header{}
	headers.Set(HeaderID, c.Get(HeaderID))
	headers.Set(HeaderSignature, c.Get(HeaderSignature))
	headers.Set(HeaderTimestamp, c.Get(HeaderTimestamp))

	if err := h.Verifier.Verify(payload, headers); err != nil {
		return h.reject(c, "unverified", err)
	}

	var ev domain.WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return h.reject(c, "malformed", err)
	}

	if err := h.Usecase.Handle(c.UserContext(), ev); err != nil {
		return h.reject(c, ev.Type, err)
	}

	webhooksReceived.WithLabelValues(ev.Type, "ok").Inc()
	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) reject(c *fiber.Ctx, eventType string, err error) error {
	logger.Log.Error("Webhook Error", zap.String("type", eventType), zap.Error(err))
	webhooksReceived.WithLabelValues(eventType, "error").Inc()
	return c.Status(fiber.StatusBadRequest).SendString("Webhook Error")
}
