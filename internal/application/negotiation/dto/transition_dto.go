package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/shared"
)

// TransitionResponse is one audit entry
type TransitionResponse struct {
	ID         uuid.UUID `json:"id"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	ViewerID   string    `json:"viewer_id"`
	FromStatus string    `json:"from_status"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TransitionListFilter holds paging query parameters
type TransitionListFilter struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}

// ToDomain converts to a repository filter
func (f TransitionListFilter) ToDomain() shared.Filter {
	return shared.Filter{Page: f.Page, PageSize: f.PageSize}
}

// ToTransitionListResponse pages domain records
func ToTransitionListResponse(records []audit.TransitionRecord, total int64, filter shared.Filter) shared.Paginated[TransitionResponse] {
	items := make([]TransitionResponse, len(records))
	for i, r := range records {
		items[i] = TransitionResponse{
			ID:         r.ID,
			EntityKind: string(r.EntityKind),
			EntityID:   r.EntityID,
			Action:     r.Action.String(),
			ViewerID:   r.ViewerID,
			FromStatus: r.FromStatus,
			Outcome:    string(r.Outcome),
			Message:    r.Message,
			RequestID:  r.RequestID,
			CreatedAt:  r.CreatedAt,
		}
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize)
}
