package service

import (
	"context"
	"fmt"
	"strings"

	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/repository"
)

type HistoryService struct {
	historyRepo  repository.HistoryRepo
	settingsRepo repository.SettingsRepo
}

func NewHistoryService(historyRepo repository.HistoryRepo, settingsRepo repository.SettingsRepo) *HistoryService {
	return &HistoryService{historyRepo: historyRepo, settingsRepo: settingsRepo}
}

func (s *HistoryService) SensorHistory(ctx context.Context, sensorID string, f HistoryFilter) ([]models.SensorHistoryRecord, error) {
	sensorID = strings.TrimSpace(sensorID)
	if sensorID == "" {
		return nil, fmt.Errorf("%w: sensor id is required", ErrInvalidSensor)
	}
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.historyRepo.ListSensor(ctx, sensorID, from, to)
}

func (s *HistoryService) HVACHistory(ctx context.Context, f HistoryFilter) ([]models.HVACHistoryRecord, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.historyRepo.ListHVAC(ctx, from, to)
}

func (s *HistoryService) SettingHistory(ctx context.Context, f HistoryFilter) ([]models.SettingChange, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.settingsRepo.History(ctx, from, to)
}
