package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/repository"
)

// SensorReloader re-reads the sensor registry into the running controller.
type SensorReloader interface {
	ReloadSensors(ctx context.Context) error
}

type SensorService struct {
	sensorRepo repository.SensorRepo
	reloader   SensorReloader
}

func NewSensorService(sensorRepo repository.SensorRepo, reloader SensorReloader) *SensorService {
	return &SensorService{sensorRepo: sensorRepo, reloader: reloader}
}

func (s *SensorService) ListSensors(ctx context.Context) ([]models.SensorConfig, error) {
	return s.sensorRepo.List(ctx)
}

// UpdateSensor renames or enables/disables a registered sensor and reloads the
// registry so the next control cycle sees the change.
func (s *SensorService) UpdateSensor(ctx context.Context, sc models.SensorConfig) error {
	sc.SensorID = strings.TrimSpace(sc.SensorID)
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.SensorID == "" {
		return fmt.Errorf("%w: sensor id is required", ErrInvalidSensor)
	}
	if sc.Name == "" {
		sc.Name = models.DefaultSensorName(sc.SensorID)
	}
	if err := s.sensorRepo.Update(ctx, sc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("sensor %q: %w", sc.SensorID, ErrNotFound)
		}
		return err
	}
	return s.reloader.ReloadSensors(ctx)
}
