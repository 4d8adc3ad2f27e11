package persistence

import (
	"context"
	"fmt"

	"github.com/solarfin/backend/internal/domain/audit"
	"github.com/solarfin/backend/internal/domain/shared"
	"github.com/solarfin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const maxPageSize = 100

// GormTransitionRepository implements audit.TransitionRepository using GORM
type GormTransitionRepository struct {
	db *gorm.DB
}

// NewGormTransitionRepository creates a new GormTransitionRepository
func NewGormTransitionRepository(db *gorm.DB) *GormTransitionRepository {
	return &GormTransitionRepository{db: db}
}

// Save inserts a record
func (r *GormTransitionRepository) Save(ctx context.Context, record *audit.TransitionRecord) error {
	if err := r.db.WithContext(ctx).Create(models.TransitionModelFromDomain(record)).Error; err != nil {
		return fmt.Errorf("save transition: %w", err)
	}
	return nil
}

// FindByEntity lists records for one entity, newest first
func (r *GormTransitionRepository) FindByEntity(ctx context.Context, kind audit.EntityKind, entityID string, filter shared.Filter) ([]audit.TransitionRecord, int64, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	scoped := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.TransitionModel{}).
			Where("entity_kind = ? AND entity_id = ?", string(kind), entityID)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transitions: %w", err)
	}

	var rows []models.TransitionModel
	if err := scoped().
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("find transitions: %w", err)
	}

	records := make([]audit.TransitionRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, total, nil
}

var _ audit.TransitionRepository = (*GormTransitionRepository)(nil)
