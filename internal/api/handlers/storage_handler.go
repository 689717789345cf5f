package handlers

import (
	storageapp "chat_platform/internal/storage/app"

	"github.com/gofiber/fiber/v2"
)

// StorageHandler blob upload endpoints
type StorageHandler struct {
	Storage storageapp.StorageUseCase
}

// NewStorageHandler create StorageHandler
func NewStorageHandler(storage storageapp.StorageUseCase) *StorageHandler {
	return &StorageHandler{Storage: storage}
}

// GenerateUploadURL mint a presigned PUT url
// @Summary Upload url
// @Description The client PUTs the file to upload_url, then passes storage_id to the message or profile call
// @Tags Storage
// @Produce json
// @Success 200 {object} domain.UploadTicket
// @Failure 401 {object} ErrorResponse
// @Router /api/storage/upload-url [post]
func (h *StorageHandler) GenerateUploadURL(c *fiber.Ctx) error {
	ticket, err := h.Storage.GenerateUploadURL(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(ticket)
}
