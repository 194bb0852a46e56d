package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/servicedesk/internal/api/dto"
	"github.com/deskforge/servicedesk/internal/service"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// AssistHandler proxies AI-assist features: text polish, summaries, reply
// suggestions, categorization, KB search and duplicate lookups.
type AssistHandler struct {
	service *service.AssistService
}

// NewAssistHandler constructs handler.
func NewAssistHandler(assistService *service.AssistService) *AssistHandler {
	return &AssistHandler{service: assistService}
}

// Polish POST /assist/polish.
func (h *AssistHandler) Polish(c *fiber.Ctx) error {
	var req dto.AssistTextRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.Polish(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssistResultResponse{Result: result}})
}

// Summarize POST /assist/summarize.
func (h *AssistHandler) Summarize(c *fiber.Ctx) error {
	var req dto.AssistTextRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.Summarize(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssistResultResponse{Result: result}})
}

// Suggest POST /assist/suggest.
func (h *AssistHandler) Suggest(c *fiber.Ctx) error {
	var req dto.AssistSuggestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.SuggestReply(c.UserContext(), req.Description, req.Context)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssistResultResponse{Result: result}})
}

// Categorize GET /assist/categorize?subject=...
func (h *AssistHandler) Categorize(c *fiber.Ctx) error {
	suggestions, err := h.service.Categorize(c.UserContext(), c.Query("subject"))
	if err != nil {
		return err
	}
	items := make([]dto.CategorySuggestionResponse, 0, len(suggestions))
	for _, suggestion := range suggestions {
		items = append(items, dto.CategorySuggestionResponse{
			CategoryID: suggestion.Category.ID,
			Name:       suggestion.Category.Name,
			Score:      suggestion.Score,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SearchKB GET /assist/kb?q=...
func (h *AssistHandler) SearchKB(c *fiber.Ctx) error {
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

// Similar GET /assist/similar?subject=...
func (h *AssistHandler) Similar(c *fiber.Ctx) error {
	tickets, err := h.service.SimilarTickets(c.UserContext(), c.Query("subject"), parseInt(c.Query("limit"), 5))
	if err != nil {
		return err
	}
	now := time.Now()
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}
