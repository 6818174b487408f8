package persistence

import (
	"context"
	"errors"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingsRepository implements billing.SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the price list, or shared.ErrNotFound before it is first saved
func (r *GormSettingsRepository) Get(ctx context.Context) (*billing.FinancialSettings, error) {
	var m models.FinancialSettingsModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", models.SettingsSingletonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain()
}

// Save replaces the price list
func (r *GormSettingsRepository) Save(ctx context.Context, settings *billing.FinancialSettings) error {
	m, err := models.FinancialSettingsModelFromDomain(settings)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

var _ billing.SettingsRepository = (*GormSettingsRepository)(nil)
