package negotiation

import (
	"context"
	"fmt"
	"strings"

	"github.com/solarfin/backend/internal/application/negotiation/dto"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/loan"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"github.com/solarfin/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LoanActionCommand asks to run one loan action on behalf of a viewer
type LoanActionCommand struct {
	ViewerID          string
	LoanID            string
	Action            shared.ActionKey
	ConfirmationToken string
}

// ListLoans returns the viewer's loans with their menus
func (s *Service) ListLoans(ctx context.Context, viewerID string) ([]dto.LoanResponse, error) {
	loans, err := s.loans.List(ctx, viewerID)
	if err != nil {
		return nil, mapReadError("loans", err)
	}
	now := s.now()
	out := make([]dto.LoanResponse, len(loans))
	for i := range loans {
		out[i] = dto.ToLoanResponse(&loans[i], now)
	}
	return out, nil
}

// GetLoan returns one loan with its menu
func (s *Service) GetLoan(ctx context.Context, viewerID, id string) (*dto.LoanResponse, error) {
	l, err := s.loadLoan(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	s.watch(audit.EntityKindLoan, id)
	resp := dto.ToLoanResponse(&l, s.now())
	return &resp, nil
}

// IssueLoanConfirmation returns a token for a danger action currently on the loan's menu
func (s *Service) IssueLoanConfirmation(ctx context.Context, viewerID, id string, key shared.ActionKey) (*dto.ConfirmationResponse, error) {
	l, err := s.loadLoan(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	action, err := loan.Authorize(l.Status, key)
	if err != nil {
		return nil, err
	}
	return s.issueConfirmation(ctx, audit.EntityKindLoan, id, action, viewerID)
}

// ExecuteLoanAction authorizes and runs one loan transition
func (s *Service) ExecuteLoanAction(ctx context.Context, cmd LoanActionCommand) (*dto.LoanActionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "negotiation", "execute_loan_action",
		attribute.String(telemetry.SpanAttrEntityKind, string(audit.EntityKindLoan)),
		attribute.String(telemetry.SpanAttrEntityID, cmd.LoanID),
		attribute.String(telemetry.SpanAttrAction, cmd.Action.String()),
		attribute.String(telemetry.SpanAttrViewerID, cmd.ViewerID),
	)
	defer span.End()

	result, err := s.executeLoanAction(ctx, cmd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

func (s *Service) executeLoanAction(ctx context.Context, cmd LoanActionCommand) (*dto.LoanActionResult, error) {
	l, err := s.loadLoan(ctx, cmd.ViewerID, cmd.LoanID)
	if err != nil {
		return nil, err
	}
	action, err := loan.Authorize(l.Status, cmd.Action)
	if err != nil {
		return nil, err
	}
	text, ok := loanTexts[action.Key]
	if !ok {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%q only opens the loan and cannot be executed", action.Label))
	}
	if err := s.requireConfirmation(ctx, audit.EntityKindLoan, l.ID, action, cmd.ViewerID, cmd.ConfirmationToken); err != nil {
		return nil, err
	}

	log := logger.L(ctx).With(
		zap.String("loan_id", l.ID),
		zap.String("action", action.Key.String()),
		zap.String("from_status", l.Status.String()),
	)

	upstreamMsg, err := s.callLoanAction(ctx, &l, action.Key)
	if err != nil {
		afe := newActionFailedError(action.Key, text.verb, err)
		s.recordAttempt(ctx, audit.EntityKindLoan, l.ID, action.Key, cmd.ViewerID, l.Status.String(), audit.OutcomeFailed, afe.Message)
		log.Warn("Loan action failed", zap.Int("upstream_status", afe.StatusCode), zap.Error(err))
		return nil, afe
	}

	message := successMessage(upstreamMsg, text)
	s.recordAttempt(ctx, audit.EntityKindLoan, l.ID, action.Key, cmd.ViewerID, l.Status.String(), audit.OutcomeSucceeded, message)
	log.Info("Loan action succeeded")

	s.invalidate(ctx, s.loans.EntityKey(l.ID), s.loans.ListKey(cmd.ViewerID))
	s.watch(audit.EntityKindLoan, l.ID)

	result := &dto.LoanActionResult{Message: message}
	fresh, err := s.loans.Refresh(ctx, l.ID)
	if err != nil {
		log.Warn("Failed to refetch loan after action", zap.Error(err))
		return result, nil
	}
	if fresh.Status != l.Status && !l.Status.CanTransitionTo(fresh.Status) {
		log.Warn("Upstream reported an unexpected loan status", zap.String("to_status", fresh.Status.String()))
	}
	resp := dto.ToLoanResponse(&fresh, s.now())
	result.Loan = &resp
	return result, nil
}

// callLoanAction issues the upstream call(s) of one loan action. Accepting
// an offer signs the agreement first unless it is already signed.
func (s *Service) callLoanAction(ctx context.Context, l *loan.Loan, key shared.ActionKey) (shared.Optional[string], error) {
	switch key {
	case loan.ActionCancel:
		return s.loans.Cancel(ctx, l.ID)
	case loan.ActionReject:
		return s.loans.Reject(ctx, l.ID)
	case loan.ActionAccept:
		if !l.AgreementSigned() {
			if _, err := s.loans.SignAgreement(ctx, l.ID); err != nil {
				return shared.Absent[string](), err
			}
		}
		return s.loans.Accept(ctx, l.ID)
	case loan.ActionPayDownpayment:
		return s.loans.PayDownpayment(ctx, l.ID)
	case loan.ActionLiquidate:
		return s.loans.Liquidate(ctx, l.ID)
	}
	return shared.Absent[string](), shared.ErrUnknownAction
}

// LoanTransitions lists the audit trail of one loan. The loan is read first
// so the upstream decides whether viewerID may see it.
func (s *Service) LoanTransitions(ctx context.Context, viewerID, id string, filter shared.Filter) (*shared.Paginated[dto.TransitionResponse], error) {
	l, err := s.loadLoan(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	return s.listTransitions(ctx, audit.EntityKindLoan, l.ID, filter)
}

// loadLoan reads through the cache for the loan's customer. Anyone else gets
// a fresh upstream read so the upstream decides what they may see.
func (s *Service) loadLoan(ctx context.Context, viewerID, id string) (loan.Loan, error) {
	if strings.TrimSpace(id) == "" {
		return loan.Loan{}, shared.ErrInvalidInput.WithMessage("Loan ID is required")
	}
	l, err := s.loans.Get(ctx, id)
	if err != nil {
		return loan.Loan{}, mapReadError("loan", err)
	}
	if viewerID != "" && l.CustomerID == viewerID {
		return l, nil
	}
	l, err = s.loans.Refresh(ctx, id)
	if err != nil {
		return loan.Loan{}, mapReadError("loan", err)
	}
	return l, nil
}
