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

// GormAcademicYearRepository implements billing.AcademicYearRepository using GORM
type GormAcademicYearRepository struct {
	db *gorm.DB
}

// NewGormAcademicYearRepository creates a new GormAcademicYearRepository
func NewGormAcademicYearRepository(db *gorm.DB) *GormAcademicYearRepository {
	return &GormAcademicYearRepository{db: db}
}

// FindAll returns every academic year ordered by year
func (r *GormAcademicYearRepository) FindAll(ctx context.Context) ([]billing.AcademicYear, error) {
	var rows []models.AcademicYearModel
	if err := r.db.WithContext(ctx).Order("year ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	years := make([]billing.AcademicYear, 0, len(rows))
	for i := range rows {
		years = append(years, rows[i].ToDomain())
	}
	return years, nil
}

// FindByYear finds the calendar of one year
func (r *GormAcademicYearRepository) FindByYear(ctx context.Context, year int) (*billing.AcademicYear, error) {
	var m models.AcademicYearModel
	if err := r.db.WithContext(ctx).First(&m, "year = ?", year).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	y := m.ToDomain()
	return &y, nil
}

// Save creates or updates an academic year
func (r *GormAcademicYearRepository) Save(ctx context.Context, year *billing.AcademicYear) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "start_month", "end_month", "updated_at"}),
		}).
		Create(models.AcademicYearModelFromDomain(*year)).Error
}

var _ billing.AcademicYearRepository = (*GormAcademicYearRepository)(nil)
