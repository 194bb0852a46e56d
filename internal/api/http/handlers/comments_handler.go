package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskforge/servicedesk/internal/api/dto"
	"github.com/deskforge/servicedesk/internal/domain"
	"github.com/deskforge/servicedesk/internal/service"
	apperrors "github.com/deskforge/servicedesk/pkg/util/errorutil"
)

// CommentsHandler serves ticket threads and CSAT feedback.
type CommentsHandler struct {
	service *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// AddComment POST /tickets/:id/comments.
func (h *CommentsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.service.AddComment(c.UserContext(), actor, id, req.Body, req.Internal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	viewer, err := requireViewer(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.UserContext(), viewer, id)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *CommentsHandler) SubmitFeedback(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	feedback, err := h.service.SubmitFeedback(c.UserContext(), actor, id, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": feedbackResponse(feedback)})
}

// GetFeedback GET /tickets/:id/feedback.
func (h *CommentsHandler) GetFeedback(c *fiber.Ctx) error {
	if _, err := requireViewer(c); err != nil {
		return err
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	feedback, err := h.service.GetFeedback(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackResponse(feedback)})
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		TicketID:   comment.TicketID,
		AuthorID:   comment.AuthorID,
		AuthorName: comment.AuthorName,
		Body:       comment.Body,
		Internal:   comment.Internal,
		CreatedAt:  comment.CreatedAt,
	}
}

func feedbackResponse(feedback *domain.Feedback) dto.FeedbackResponse {
	return dto.FeedbackResponse{
		ID:        feedback.ID,
		TicketID:  feedback.TicketID,
		Rating:    feedback.Rating,
		Comment:   feedback.Comment,
		CreatedAt: feedback.CreatedAt,
	}
}
