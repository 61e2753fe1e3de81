package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nutritrack/dietary/internal/domain/menu"
	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// DefaultUpdateRange is the patient-updates window when none is given.
const DefaultUpdateRange = 60 * time.Minute

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Census(ctx context.Context) (Census, error) {
	rows, err := s.repo.Patients(ctx)
	if err != nil {
		return Census{}, fmt.Errorf("load census: %w", err)
	}
	return BuildCensus(rows), nil
}

// PatientUpdates reports patients changed within the last window.
func (s *Service) PatientUpdates(ctx context.Context, window time.Duration) ([]UnitUpdates, error) {
	if window <= 0 {
		return nil, apperr.Validationf("range must be a positive number of minutes")
	}
	since := s.now().Add(-window)
	rows, err := s.repo.PatientsUpdatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load patient updates: %w", err)
	}
	return BuildPatientUpdates(rows, since), nil
}

func (s *Service) RiskLog(ctx context.Context) ([]RiskEntry, error) {
	rows, err := s.repo.HighRiskPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load risk log: %w", err)
	}
	return BuildRiskLog(rows), nil
}

func (s *Service) PrepList(ctx context.Context, day, mealPeriod, area string) ([]PrepItem, error) {
	if !menu.ValidDay(day) {
		return nil, apperr.Validationf("Invalid input. Please input a day of the week, I.E. Monday")
	}
	if !menu.ValidMealPeriod(mealPeriod) {
		return nil, apperr.Validationf("Must be either Breakfast, Lunch, or Dinner")
	}
	area = strings.TrimSpace(area)
	if area == "" {
		return nil, apperr.Validationf("A production area is required")
	}
	items, err := s.repo.OrderedItems(ctx, day, mealPeriod)
	if err != nil {
		return nil, fmt.Errorf("load ordered items: %w", err)
	}
	return BuildPrepList(items, area), nil
}
