package negotiation

import (
	"context"
	"errors"
	"fmt"

	"github.com/solarfin/backend/internal/application/negotiation/dto"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/cache"
)

// confirmationScope binds a token to one viewer, entity and action
func confirmationScope(kind audit.EntityKind, entityID string, action shared.ActionKey, viewerID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", kind, entityID, action, viewerID)
}

func (s *Service) issueConfirmation(ctx context.Context, kind audit.EntityKind, entityID string, action shared.Action, viewerID string) (*dto.ConfirmationResponse, error) {
	if !action.RequiresConfirmation() {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Action %q does not need confirmation", action.Key))
	}
	token, err := s.confirmations.Issue(ctx, confirmationScope(kind, entityID, action.Key, viewerID), s.confirmationTTL)
	if err != nil {
		return nil, fmt.Errorf("issue confirmation: %w", err)
	}
	s.metrics.RecordConfirmationIssued(ctx, string(kind), action.Key.String())
	return &dto.ConfirmationResponse{
		Token:     token,
		Action:    action.Key.String(),
		ExpiresAt: s.now().Add(s.confirmationTTL),
	}, nil
}

// requireConfirmation consumes the token of a danger action. Nothing is
// consumed for default-tone actions.
func (s *Service) requireConfirmation(ctx context.Context, kind audit.EntityKind, entityID string, action shared.Action, viewerID, token string) error {
	if !action.RequiresConfirmation() {
		return nil
	}
	if token == "" {
		return shared.ErrConfirmationRequired.WithMessage(fmt.Sprintf("Confirm %q before running it", action.Label))
	}
	err := s.confirmations.Consume(ctx, confirmationScope(kind, entityID, action.Key, viewerID), token)
	if errors.Is(err, cache.ErrTokenNotFound) {
		return shared.ErrConfirmationRequired.WithMessage("Confirmation expired or does not match this action")
	}
	if err != nil {
		return fmt.Errorf("consume confirmation: %w", err)
	}
	return nil
}
