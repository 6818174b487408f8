package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/escola/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// GormStudentRepository implements billing.StudentRepository using GORM
type GormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository creates a new GormStudentRepository
func NewGormStudentRepository(db *gorm.DB) *GormStudentRepository {
	return &GormStudentRepository{db: db}
}

func orderedChildren(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID loads a student with payments and extra charges
func (r *GormStudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Student, error) {
	var m models.StudentModel
	err := r.db.WithContext(ctx).
		Preload("Payments", orderedChildren).
		Preload("ExtraCharges", orderedChildren).
		First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain()
}

// FindAll returns one page of students ordered by name
func (r *GormStudentRepository) FindAll(ctx context.Context, filter billing.StudentFilter) ([]billing.Student, error) {
	var rows []models.StudentModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.StudentModel{}), filter).
		Preload("Payments", orderedChildren).
		Preload("ExtraCharges", orderedChildren).
		Order("name ASC").Order("id ASC")
	query = paginate(query, filter.Page, filter.PageSize)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	students := make([]billing.Student, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, nil
}

// Count counts students matching the filter, ignoring pagination
func (r *GormStudentRepository) Count(ctx context.Context, filter billing.StudentFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.StudentModel{}), filter).Count(&count).Error
	return count, err
}

// Save upserts the student row and replaces its payments and extra charges
// in one transaction.
func (r *GormStudentRepository) Save(ctx context.Context, student *billing.Student) error {
	m, err := models.StudentModelFromDomain(student)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.StudentModel{}).Where("id = ?", m.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check student: %w", err)
		}
		if existing == 0 {
			if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
				return fmt.Errorf("create student: %w", err)
			}
		} else if err := tx.Model(m).Select("*").Omit(clause.Associations).Updates(m).Error; err != nil {
			return fmt.Errorf("update student: %w", err)
		}
		if err := tx.Where("student_id = ?", m.ID).Delete(&models.PaymentModel{}).Error; err != nil {
			return fmt.Errorf("clear payments: %w", err)
		}
		if err := tx.Where("student_id = ?", m.ID).Delete(&models.ExtraChargeModel{}).Error; err != nil {
			return fmt.Errorf("clear extra charges: %w", err)
		}
		if len(m.Payments) > 0 {
			if err := tx.Create(&m.Payments).Error; err != nil {
				return fmt.Errorf("insert payments: %w", err)
			}
		}
		if len(m.ExtraCharges) > 0 {
			if err := tx.Create(&m.ExtraCharges).Error; err != nil {
				return fmt.Errorf("insert extra charges: %w", err)
			}
		}
		return nil
	})
}

// Delete removes a student and its financial history
func (r *GormStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", id).Delete(&models.PaymentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", id).Delete(&models.ExtraChargeModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.StudentModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormStudentRepository) applyFilter(query *gorm.DB, filter billing.StudentFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(filter.Search))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.DesiredClass != "" {
		query = query.Where("desired_class = ?", filter.DesiredClass)
	}
	return query
}

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

var _ billing.StudentRepository = (*GormStudentRepository)(nil)
