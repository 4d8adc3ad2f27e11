package negotiation

import (
	"context"
	"fmt"
	"strings"

	"github.com/solarfin/backend/internal/application/negotiation/dto"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// recordAttempt writes the audit entry and metrics of one transition that
// reached the upstream. Audit failures are logged, never returned.
func (s *Service) recordAttempt(ctx context.Context, kind audit.EntityKind, entityID string, action shared.ActionKey, viewerID, fromStatus string, outcome audit.Outcome, message string) {
	s.metrics.RecordTransition(ctx, string(kind), action.String(), string(outcome))
	if s.transitions == nil {
		return
	}
	rec, err := audit.NewTransitionRecord(kind, entityID, action, viewerID, fromStatus, outcome, message)
	if err != nil {
		s.logger.Warn("Invalid transition record", zap.Error(err))
		return
	}
	rec.RequestID = logger.GetRequestID(ctx)
	if err := s.transitions.Save(ctx, rec); err != nil {
		logger.L(ctx).Error("Failed to save transition record",
			zap.String("entity_kind", string(kind)),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

func (s *Service) listTransitions(ctx context.Context, kind audit.EntityKind, entityID string, filter shared.Filter) (*shared.Paginated[dto.TransitionResponse], error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Entity ID is required")
	}
	if s.transitions == nil {
		page := dto.ToTransitionListResponse(nil, 0, filter)
		return &page, nil
	}
	records, total, err := s.transitions.FindByEntity(ctx, kind, entityID, filter)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	page := dto.ToTransitionListResponse(records, total, filter)
	return &page, nil
}
