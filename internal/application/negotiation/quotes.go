package negotiation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/solarfin/backend/internal/application/negotiation/dto"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/quote"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"github.com/solarfin/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// QuoteActionCommand asks to run one quote action on behalf of a viewer
type QuoteActionCommand struct {
	ViewerID          string
	QuoteID           string
	Action            shared.ActionKey
	Amount            shared.Optional[decimal.Decimal]
	CounterAmount     shared.Optional[decimal.Decimal]
	Message           shared.Optional[string]
	ConfirmationToken string
}

// ListQuotes returns the viewer's quote requests with their menus
func (s *Service) ListQuotes(ctx context.Context, viewerID string) ([]dto.QuoteResponse, error) {
	quotes, err := s.quotes.List(ctx, viewerID)
	if err != nil {
		return nil, mapReadError("quote requests", err)
	}
	out := make([]dto.QuoteResponse, len(quotes))
	for i := range quotes {
		s.warnOnUnknownAuthor(ctx, &quotes[i])
		out[i] = dto.ToQuoteResponse(&quotes[i], viewerID)
	}
	return out, nil
}

// GetQuote returns one quote request as seen by the viewer
func (s *Service) GetQuote(ctx context.Context, viewerID, id string) (*dto.QuoteResponse, error) {
	q, err := s.loadQuote(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	s.watch(audit.EntityKindQuote, id)
	resp := dto.ToQuoteResponse(&q, viewerID)
	return &resp, nil
}

// IssueQuoteConfirmation returns a token for a danger action the viewer may run now
func (s *Service) IssueQuoteConfirmation(ctx context.Context, viewerID, id string, key shared.ActionKey) (*dto.ConfirmationResponse, error) {
	q, err := s.loadQuote(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	action, err := q.ViewFor(viewerID).Authorize(key)
	if err != nil {
		return nil, err
	}
	return s.issueConfirmation(ctx, audit.EntityKindQuote, id, action, viewerID)
}

// ExecuteQuoteAction authorizes and runs one quote transition
func (s *Service) ExecuteQuoteAction(ctx context.Context, cmd QuoteActionCommand) (*dto.QuoteActionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "negotiation", "execute_quote_action",
		attribute.String(telemetry.SpanAttrEntityKind, string(audit.EntityKindQuote)),
		attribute.String(telemetry.SpanAttrEntityID, cmd.QuoteID),
		attribute.String(telemetry.SpanAttrAction, cmd.Action.String()),
		attribute.String(telemetry.SpanAttrViewerID, cmd.ViewerID),
	)
	defer span.End()

	result, err := s.executeQuoteAction(ctx, cmd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

func (s *Service) executeQuoteAction(ctx context.Context, cmd QuoteActionCommand) (*dto.QuoteActionResult, error) {
	q, err := s.loadQuote(ctx, cmd.ViewerID, cmd.QuoteID)
	if err != nil {
		return nil, err
	}
	action, err := q.ViewFor(cmd.ViewerID).Authorize(cmd.Action)
	if err != nil {
		return nil, err
	}
	text, ok := quoteTexts[action.Key]
	if !ok {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%q only opens the quote and cannot be executed", action.Label))
	}
	if err := validateQuotePayload(action.Key, cmd); err != nil {
		return nil, err
	}
	if err := s.requireConfirmation(ctx, audit.EntityKindQuote, q.ID, action, cmd.ViewerID, cmd.ConfirmationToken); err != nil {
		return nil, err
	}

	log := logger.L(ctx).With(
		zap.String("quote_id", q.ID),
		zap.String("action", action.Key.String()),
		zap.String("from_status", q.Status.String()),
	)

	upstreamMsg, err := s.callQuoteAction(ctx, q.ID, action.Key, cmd)
	if err != nil {
		afe := newActionFailedError(action.Key, text.verb, err)
		s.recordAttempt(ctx, audit.EntityKindQuote, q.ID, action.Key, cmd.ViewerID, q.Status.String(), audit.OutcomeFailed, afe.Message)
		log.Warn("Quote action failed", zap.Int("upstream_status", afe.StatusCode), zap.Error(err))
		return nil, afe
	}

	message := successMessage(upstreamMsg, text)
	s.recordAttempt(ctx, audit.EntityKindQuote, q.ID, action.Key, cmd.ViewerID, q.Status.String(), audit.OutcomeSucceeded, message)
	log.Info("Quote action succeeded")

	// both parties' lists show the turn
	s.invalidate(ctx, s.quotes.EntityKey(q.ID), s.quotes.ListKey(q.RequesterID), s.quotes.ListKey(q.SupplierID))
	s.watch(audit.EntityKindQuote, q.ID)

	result := &dto.QuoteActionResult{Message: message}
	fresh, err := s.quotes.Refresh(ctx, q.ID)
	if err != nil {
		log.Warn("Failed to refetch quote after action", zap.Error(err))
		return result, nil
	}
	if fresh.Status != q.Status && !q.Status.CanTransitionTo(fresh.Status) {
		log.Warn("Upstream reported an unexpected quote status", zap.String("to_status", fresh.Status.String()))
	}
	resp := dto.ToQuoteResponse(&fresh, cmd.ViewerID)
	result.Quote = &resp
	return result, nil
}

func validateQuotePayload(key shared.ActionKey, cmd QuoteActionCommand) error {
	var (
		amount shared.Optional[decimal.Decimal]
		field  string
	)
	switch key {
	case quote.ActionSendQuote:
		amount, field = cmd.Amount, "amount"
	case quote.ActionNegotiate:
		amount, field = cmd.CounterAmount, "counter_amount"
	default:
		return nil
	}
	v, ok := amount.Get()
	if !ok {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%s is required", field))
	}
	if !v.IsPositive() {
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("%s must be greater than zero", field))
	}
	return nil
}

func (s *Service) callQuoteAction(ctx context.Context, id string, key shared.ActionKey, cmd QuoteActionCommand) (shared.Optional[string], error) {
	switch key {
	case quote.ActionSendQuote:
		amount, _ := cmd.Amount.Get()
		return s.quotes.Send(ctx, id, amount, cmd.Message)
	case quote.ActionNegotiate:
		counter, _ := cmd.CounterAmount.Get()
		return s.quotes.Negotiate(ctx, id, counter, cmd.Message)
	case quote.ActionAccept:
		return s.quotes.Accept(ctx, id)
	case quote.ActionReject:
		return s.quotes.Reject(ctx, id)
	case quote.ActionPay:
		return s.quotes.Pay(ctx, id)
	}
	return shared.Absent[string](), shared.ErrUnknownAction
}

// QuoteTransitions lists the audit trail of one quote request once the
// upstream lets viewerID read it
func (s *Service) QuoteTransitions(ctx context.Context, viewerID, id string, filter shared.Filter) (*shared.Paginated[dto.TransitionResponse], error) {
	q, err := s.loadQuote(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	return s.listTransitions(ctx, audit.EntityKindQuote, q.ID, filter)
}

// loadQuote reads through the cache for either party; other viewers get a
// fresh upstream read.
func (s *Service) loadQuote(ctx context.Context, viewerID, id string) (quote.QuoteRequest, error) {
	if strings.TrimSpace(id) == "" {
		return quote.QuoteRequest{}, shared.ErrInvalidInput.WithMessage("Quote request ID is required")
	}
	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		return quote.QuoteRequest{}, mapReadError("quote request", err)
	}
	if !shared.ResolveRoles(viewerID, q.RequesterID, q.SupplierID).IsParty() {
		q, err = s.quotes.Refresh(ctx, id)
		if err != nil {
			return quote.QuoteRequest{}, mapReadError("quote request", err)
		}
	}
	s.warnOnUnknownAuthor(ctx, &q)
	return q, nil
}

func (s *Service) warnOnUnknownAuthor(ctx context.Context, q *quote.QuoteRequest) {
	if q.Turn().LastAuthor != quote.PartyUnknown {
		return
	}
	last, _ := q.LastEvent()
	logger.L(ctx).Warn("Quote history ends with an event by a non-party; nobody may act",
		zap.String("quote_id", q.ID),
		zap.String("author_id", last.ActorID),
	)
}
