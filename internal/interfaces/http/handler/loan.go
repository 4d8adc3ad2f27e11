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

// LoanService is the part of negotiation.Service the loan routes use
type LoanService interface {
	ListLoans(ctx context.Context, viewerID string) ([]dto.LoanResponse, error)
	GetLoan(ctx context.Context, viewerID, id string) (*dto.LoanResponse, error)
	IssueLoanConfirmation(ctx context.Context, viewerID, id string, key shared.ActionKey) (*dto.ConfirmationResponse, error)
	ExecuteLoanAction(ctx context.Context, cmd negotiation.LoanActionCommand) (*dto.LoanActionResult, error)
	LoanTransitions(ctx context.Context, viewerID, id string, filter shared.Filter) (*shared.Paginated[dto.TransitionResponse], error)
}

// LoanHandler serves loan reads and transitions
type LoanHandler struct {
	BaseHandler
	service LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{service: service}
}

// List godoc
// @ID           listLoans
// @Summary      List the viewer's loans
// @Description  Loans the viewer can see, each with its display status and action menu
// @Tags         loans
// @Produce      json
// @Success      200 {object} APIResponse[[]dto.LoanResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loans [get]
func (h *LoanHandler) List(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	loans, err := h.service.ListLoans(c.Request.Context(), viewerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, loans)
}

// Get godoc
// @ID           getLoan
// @Summary      Get a loan by ID
// @Description  One loan with its display status and the viewer's action menu
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan ID"
// @Success      200 {object} APIResponse[dto.LoanResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	l, err := h.service.GetLoan(c.Request.Context(), viewerID, c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, l)
}

// IssueConfirmation godoc
// @ID           issueLoanConfirmation
// @Summary      Issue a confirmation token
// @Description  Hands out a single-use token that a danger action must echo back
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan ID"
// @Param        action path string true "Action key"
// @Success      201 {object} APIResponse[dto.ConfirmationResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loans/{id}/actions/{action}/confirmations [post]
func (h *LoanHandler) IssueConfirmation(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	token, err := h.service.IssueLoanConfirmation(c.Request.Context(), viewerID, c.Param("id"), shared.ActionKey(c.Param("action")))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, token)
}

// Execute godoc
// @ID           executeLoanAction
// @Summary      Run a loan action
// @Description  Runs one transition on the loan. The body is optional and only
// @Description  carries the confirmation token for danger actions.
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        id path string true "Loan ID"
// @Param        action path string true "Action key"
// @Param        request body dto.LoanActionRequest false "Confirmation"
// @Success      200 {object} APIResponse[dto.LoanActionResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loans/{id}/actions/{action} [post]
func (h *LoanHandler) Execute(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	var req dto.LoanActionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.ExecuteLoanAction(c.Request.Context(), negotiation.LoanActionCommand{
		ViewerID:          viewerID,
		LoanID:            c.Param("id"),
		Action:            shared.ActionKey(c.Param("action")),
		ConfirmationToken: req.ConfirmationToken,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, result)
}

// Transitions godoc
// @ID           listLoanTransitions
// @Summary      List a loan's transitions
// @Description  Pages the audit trail of a loan the viewer can read
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]dto.TransitionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /loans/{id}/transitions [get]
func (h *LoanHandler) Transitions(c *gin.Context) {
	viewerID, ok := h.viewerID(c)
	if !ok {
		return
	}
	var filter dto.TransitionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	page, err := h.service.LoanTransitions(c.Request.Context(), viewerID, c.Param("id"), filter.ToDomain())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
