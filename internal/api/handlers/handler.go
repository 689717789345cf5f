package handlers

import (
	"fmt"
	"strconv"

	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConnectCheck check api connect start
// @Summary Check service status
// @Description Returns a simple confirmation message
// @Tags Shared
// @Success 200 {string} string "chat service start!"
// @Router / [get]
func ConnectCheck(c *fiber.Ctx) error {
	return c.SendString("chat service start!")
}

// DebugLogFlag toggle debug log flag
// @Summary Toggle Debug Log Flag
// @Description Enable or disable debug logging for a service
// @Tags Shared
// @Param service query string true "Service name"
// @Param status query bool true "Debug status"
// @Success 200 {string} string "Service debug mode updated"
// @Failure 400 {string} string "Invalid status value"
// @Router /debug [post]
func DebugLogFlag(c *fiber.Ctx) error {
	service := c.Query("service")
	statusStr := c.Query("status")
	logger.Log.Info("debug", zap.String("service", service), zap.String("status", statusStr))
	status, err := strconv.ParseBool(statusStr)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	logger.Log.SetDebugMode(status)
	return c.SendString(fmt.Sprintf("service[%s]: debug mode is : %t", service, status))
}

// fail map err onto its status, internal details stay in the log
func fail(c *fiber.Ctx, err error) error {
	status := errprocess.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(ErrorResponse{Error: errprocess.Message(err)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}
