package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/solarfin/backend/internal/domain/shared"
)

// EntityKind tells which lifecycle a transition belongs to
type EntityKind string

const (
	EntityKindLoan  EntityKind = "loan"
	EntityKindQuote EntityKind = "quote"
)

// IsValid checks if the kind is known
func (k EntityKind) IsValid() bool {
	return k == EntityKindLoan || k == EntityKindQuote
}

// Outcome is the result of a transition attempt
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// TransitionRecord is the audit entry written for every transition that
// reached the upstream API.
type TransitionRecord struct {
	ID         uuid.UUID
	EntityKind EntityKind
	EntityID   string
	Action     shared.ActionKey
	ViewerID   string
	FromStatus string
	Outcome    Outcome
	Message    string
	RequestID  string
	CreatedAt  time.Time
}

// NewTransitionRecord creates a record stamped with a fresh id and the current time
func NewTransitionRecord(kind EntityKind, entityID string, action shared.ActionKey, viewerID, fromStatus string, outcome Outcome, message string) (*TransitionRecord, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_KIND", "Entity kind must be loan or quote")
	}
	if entityID == "" {
		return nil, shared.NewDomainError("INVALID_ENTITY_ID", "Entity ID cannot be empty")
	}
	if action == "" {
		return nil, shared.NewDomainError("INVALID_ACTION", "Action cannot be empty")
	}
	return &TransitionRecord{
		ID:         uuid.New(),
		EntityKind: kind,
		EntityID:   entityID,
		Action:     action,
		ViewerID:   viewerID,
		FromStatus: fromStatus,
		Outcome:    outcome,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// TransitionRepository persists transition audit records
type TransitionRepository interface {
	Save(ctx context.Context, record *TransitionRecord) error
	// FindByEntity lists records for one entity, newest first
	FindByEntity(ctx context.Context, kind EntityKind, entityID string, filter shared.Filter) ([]TransitionRecord, int64, error)
}
