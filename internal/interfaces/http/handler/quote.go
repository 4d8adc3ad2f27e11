package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/solarfin/backend/internal/application/negotiation"
	"github.com/solarfin/backend/internal/application/negotiation/dto"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/interfaces/http/middleware"
)

// QuoteService is the part of negotiation.Service the quote routes use
type QuoteService interface {
	ListQuotes(ctx context.Context, viewerID string) ([]dto.QuoteResponse, error)
	GetQuote(ctx context.Context, viewerID, id string) (*dto.QuoteResponse, error)
	IssueQuoteConfirmation(ctx context.Context, viewerID, id string, key shared.ActionKey) (*dto.ConfirmationResponse, error)
	ExecuteQuoteAction(ctx context.Context, cmd negotiation.QuoteActionCommand) (*dto.QuoteActionResult, error)
	QuoteTransitions(ctx context.Context, viewerID, id string, filter shared.Filter) (*shared.Paginated[dto.TransitionResponse], error)
}

// QuoteHandler serves quote request reads and negotiation moves
type QuoteHandler struct {
	BaseHandler
	service QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(service QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// List godoc
// @ID           listQuotes
// @Summary      List the viewer's quote requests
// @Description  Quote requests the viewer can see, each with its display status and action menu
// @Tags         quotes
// @Produce      json
// @Success      200 {object} APIResponse[[]dto.QuoteResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes [get]
func (h *QuoteHandler) List(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	quotes, err := h.service.ListQuotes(c.Request.Context(), viewerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, quotes)
}

// Get godoc
// @ID           getQuote
// @Summary      Get a quote request by ID
// @Description  One quote request with its display status and the viewer's action menu
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID"
// @Success      200 {object} APIResponse[dto.QuoteResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id} [get]
func (h *QuoteHandler) Get(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	q, err := h.service.GetQuote(c.Request.Context(), viewerID, c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, q)
}

// IssueConfirmation godoc
// @ID           issueQuoteConfirmation
// @Summary      Issue a confirmation token
// @Description  Hands out a single-use token that a danger action must echo back
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID"
// @Param        action path string true "Action key"
// @Success      201 {object} APIResponse[dto.ConfirmationResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/actions/{action}/confirmations [post]
func (h *QuoteHandler) IssueConfirmation(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	token, err := h.service.IssueQuoteConfirmation(c.Request.Context(), viewerID, c.Param("id"), shared.ActionKey(c.Param("action")))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, token)
}

// Execute godoc
// @ID           executeQuoteAction
// @Summary      Run a negotiation move
// @Description  Runs one move on the quote request. Which amount is required
// @Description  depends on the action and is checked by the service.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        id path string true "Quote ID"
// @Param        action path string true "Action key"
// @Param        request body dto.QuoteActionRequest false "Amounts, message and confirmation"
// @Success      200 {object} APIResponse[dto.QuoteActionResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/actions/{action} [post]
func (h *QuoteHandler) Execute(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	var req dto.QuoteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.ExecuteQuoteAction(c.Request.Context(), negotiation.QuoteActionCommand{
		ViewerID:          viewerID,
		QuoteID:           c.Param("id"),
		Action:            shared.ActionKey(c.Param("action")),
		Amount:            shared.FromPtr(req.Amount),
		CounterAmount:     shared.FromPtr(req.CounterAmount),
		Message:           shared.FromPtr(req.AdditionalMessage),
		ConfirmationToken: req.ConfirmationToken,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// Transitions godoc
// @ID           listQuoteTransitions
// @Summary      List a quote request's transitions
// @Description  Pages the audit trail of a quote request the viewer can read
// @Tags         quotes
// @Produce      json
// @Param        id path string true "Quote ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]dto.TransitionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /quotes/{id}/transitions [get]
func (h *QuoteHandler) Transitions(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	var filter dto.TransitionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	page, err := h.service.QuoteTransitions(c.Request.Context(), viewerID, c.Param("id"), filter.ToDomain())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
