// Package models holds the GORM persistence models.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/shared"
)

// TransitionModel is the row written for every executed transition attempt
type TransitionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EntityKind string    `gorm:"type:varchar(16);not null;index:idx_transition_audit_entity,priority:1"`
	EntityID   string    `gorm:"type:varchar(64);not null;index:idx_transition_audit_entity,priority:2"`
	Action     string    `gorm:"type:varchar(32);not null"`
	ViewerID   string    `gorm:"type:varchar(64);not null"`
	FromStatus string    `gorm:"type:varchar(32)"`
	Outcome    string    `gorm:"type:varchar(16);not null"`
	Message    string    `gorm:"type:text"`
	RequestID  string    `gorm:"type:varchar(64)"`
	CreatedAt  time.Time `gorm:"not null;index:idx_transition_audit_entity,priority:3,sort:desc"`
}

// TableName returns the table name for GORM
func (TransitionModel) TableName() string {
	return "transition_audit"
}

// ToDomain converts the model to a domain record
func (m *TransitionModel) ToDomain() audit.TransitionRecord {
	return audit.TransitionRecord{
		ID:         m.ID,
		EntityKind: audit.EntityKind(m.EntityKind),
		EntityID:   m.EntityID,
		Action:     shared.ActionKey(m.Action),
		ViewerID:   m.ViewerID,
		FromStatus: m.FromStatus,
		Outcome:    audit.Outcome(m.Outcome),
		Message:    m.Message,
		RequestID:  m.RequestID,
		CreatedAt:  m.CreatedAt,
	}
}

// TransitionModelFromDomain converts a domain record to a model
func TransitionModelFromDomain(r *audit.TransitionRecord) *TransitionModel {
	return &TransitionModel{
		ID:         r.ID,
		EntityKind: string(r.EntityKind),
		EntityID:   r.EntityID,
		Action:     string(r.Action),
		ViewerID:   r.ViewerID,
		FromStatus: r.FromStatus,
		Outcome:    string(r.Outcome),
		Message:    r.Message,
		RequestID:  r.RequestID,
		CreatedAt:  r.CreatedAt,
	}
}
