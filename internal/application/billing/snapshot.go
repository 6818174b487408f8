package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/escola/backend/internal/domain/billing"
	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrSettingsNotConfigured is returned when the school has not saved a price list yet
var ErrSettingsNotConfigured = shared.NewReasonError(shared.ErrInvalidState.Code, "SETTINGS_NOT_CONFIGURED", "financial settings are not configured")

// snapshotLoader assembles the engine input from the repositories
type snapshotLoader struct {
	students   billing.StudentRepository
	settings   billing.SettingsRepository
	years      billing.AcademicYearRepository
	clock      billing.Clock
	tolerances *billing.Tolerances
}

func (l *snapshotLoader) load(ctx context.Context, studentID uuid.UUID) (billing.Snapshot, error) {
	student, err := l.students.FindByID(ctx, studentID)
	if err != nil {
		return billing.Snapshot{}, err
	}
	return l.loadFor(ctx, student)
}

func (l *snapshotLoader) loadFor(ctx context.Context, student *billing.Student) (billing.Snapshot, error) {
	settings, err := l.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.Snapshot{}, ErrSettingsNotConfigured
		}
		return billing.Snapshot{}, fmt.Errorf("failed to load financial settings: %w", err)
	}
	years, err := l.years.FindAll(ctx)
	if err != nil {
		return billing.Snapshot{}, fmt.Errorf("failed to load academic years: %w", err)
	}

	effective := *settings
	if l.tolerances != nil {
		effective = effective.WithTolerances(*l.tolerances)
	}
	snap := billing.Snapshot{
		Student:  student,
		Settings: effective,
		Years:    years,
		AsOf:     l.clock.Now(),
	}
	if err := snap.Validate(); err != nil {
		return billing.Snapshot{}, err
	}
	return snap, nil
}
