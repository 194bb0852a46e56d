package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/servicedesk/internal/api/dto"
	"github.com/deskforge/servicedesk/internal/service"
)

// DirectoryHandler serves reference data: categories and KB articles.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(directoryService *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: directoryService}
}

// ListCategories GET /categories.
func (h *DirectoryHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, dto.CategoryResponse{
			ID:       category.ID,
			Name:     category.Name,
			Keywords: category.Keywords,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SearchKB GET /kb?q=...
func (h *DirectoryHandler) SearchKB(c *fiber.Ctx) error {
	articles, err := h.service.SearchKB(c.UserContext(), c.Query("q"), parseInt(c.Query("limit"), 5))
	if err != nil {
		return err
	}
	items := make([]dto.KBArticleResponse, 0, len(articles))
	for _, article := range articles {
		items = append(items, dto.KBArticleResponse{
			ID:    article.ID,
			Title: article.Title,
			Body:  article.Body,
			Tags:  article.Tags,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
