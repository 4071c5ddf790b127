package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/repository"
)

// ScheduleReloader re-reads the schedule table into the running controller.
type ScheduleReloader interface {
	ReloadSchedules(ctx context.Context) error
}

type ScheduleService struct {
	scheduleRepo repository.ScheduleRepo
	reloader     ScheduleReloader
	minF, maxF   float64
}

func NewScheduleService(scheduleRepo repository.ScheduleRepo, reloader ScheduleReloader, minF, maxF float64) *ScheduleService {
	return &ScheduleService{scheduleRepo: scheduleRepo, reloader: reloader, minF: minF, maxF: maxF}
}

func (s *ScheduleService) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	return s.scheduleRepo.List(ctx)
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, sc models.Schedule) (models.Schedule, error) {
	sc.Name = strings.TrimSpace(sc.Name)
	if err := s.validate(sc); err != nil {
		return models.Schedule{}, err
	}
	id, err := s.scheduleRepo.Create(ctx, sc)
	if err != nil {
		return models.Schedule{}, err
	}
	sc.ID = id
	return sc, s.reloader.ReloadSchedules(ctx)
}

func (s *ScheduleService) UpdateSchedule(ctx context.Context, sc models.Schedule) (models.Schedule, error) {
	sc.Name = strings.TrimSpace(sc.Name)
	if err := s.validate(sc); err != nil {
		return models.Schedule{}, err
	}
	if err := s.scheduleRepo.Update(ctx, sc); err != nil {
		return models.Schedule{}, notFound(err, sc.ID)
	}
	return sc, s.reloader.ReloadSchedules(ctx)
}

func (s *ScheduleService) DeleteSchedule(ctx context.Context, id int64) error {
	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		return notFound(err, id)
	}
	return s.reloader.ReloadSchedules(ctx)
}

// validate checks the schedule fields and keeps its targets inside the range
// accepted from manual commands.
func (s *ScheduleService) validate(sc models.Schedule) error {
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	for name, v := range map[string]*float64{"target_heat_f": sc.TargetHeatF, "target_cool_f": sc.TargetCoolF} {
		if v != nil && (*v < s.minF || *v > s.maxF) {
			return fmt.Errorf("%w: %s %.1f outside [%.1f, %.1f]", ErrInvalidSchedule, name, *v, s.minF, s.maxF)
		}
	}
	if sc.TargetHeatF == nil && sc.TargetCoolF == nil && sc.Mode == nil {
		return fmt.Errorf("%w: schedule changes nothing", ErrInvalidSchedule)
	}
	return nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	return err
}
