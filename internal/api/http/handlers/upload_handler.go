package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/deskforge/servicedesk/internal/api/dto"
	"github.com/deskforge/servicedesk/internal/config"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// UploadHandler stores ticket attachments on local disk.
type UploadHandler struct {
	cfg config.UploadConfig
}

// NewUploadHandler constructs handler.
func NewUploadHandler(cfg config.UploadConfig) *UploadHandler {
	return &UploadHandler{cfg: cfg}
}

// Upload POST /uploads accepts a multipart file field named "file".
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	if _, err := requireActor(c); err != nil {
		return err
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file field is required", nil)
	}
	if h.cfg.MaxSizeBytes > 0 && fileHeader.Size > h.cfg.MaxSizeBytes {
		return apperrors.NewValidationError("file too large", map[string]any{"max_bytes": h.cfg.MaxSizeBytes})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	name := uuid.NewString() + ext
	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := c.SaveFile(fileHeader, filepath.Join(h.cfg.Dir, name)); err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.UploadResponse{
		FileName: name,
		URL:      strings.TrimRight(h.cfg.BaseURL, "/") + "/" + name,
		Size:     fileHeader.Size,
	}})
}
