package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidStageConfig is wrapped by every stage table validation failure.
var ErrInvalidStageConfig = errors.New("invalid stage config")

// StageConfig describes one increment of heating or cooling capacity.
type StageConfig struct {
	Kind         StageKind     `json:"kind" mapstructure:"kind"`
	Number       int           `json:"stage_number" mapstructure:"stage_number"`
	RelayChannel uint8         `json:"relay_channel" mapstructure:"relay_channel"`
	TempOffsetF  float64       `json:"temp_offset_f" mapstructure:"temp_offset_f"`
	MinRunTime   time.Duration `json:"min_run_time" mapstructure:"min_run_time"`
	MinRestTime  time.Duration `json:"min_rest_time" mapstructure:"min_rest_time"`
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
}

// StageRuntimeState is the rate-limited activation state of a stage.
type StageRuntimeState struct {
	Active         bool      `json:"active"`
	LastTransition time.Time `json:"last_transition"`
}

// SortStages orders stages by kind and then ascending stage number.
func SortStages(stages []StageConfig) {
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].Kind != stages[j].Kind {
			return stages[i].Kind < stages[j].Kind
		}
		return stages[i].Number < stages[j].Number
	})
}

// ValidateStageConfigs checks the stage table invariants: stage numbers are unique
// and >= 1 within a kind, offsets are non-negative and non-decreasing with the stage
// number, and no relay channel is shared.
func ValidateStageConfigs(stages []StageConfig) error {
	byKind := map[StageKind][]StageConfig{}
	channels := map[uint8]string{}
	for _, s := range stages {
		if _, ok := ParseStageKind(string(s.Kind)); !ok {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidStageConfig, s.Kind)
		}
		if s.Number < 1 {
			return fmt.Errorf("%w: %s stage number %d must be >= 1", ErrInvalidStageConfig, s.Kind, s.Number)
		}
		if s.TempOffsetF < 0 {
			return fmt.Errorf("%w: %s stage %d has negative offset %.2f", ErrInvalidStageConfig, s.Kind, s.Number, s.TempOffsetF)
		}
		if s.MinRunTime < 0 || s.MinRestTime < 0 {
			return fmt.Errorf("%w: %s stage %d has negative min run/rest time", ErrInvalidStageConfig, s.Kind, s.Number)
		}
		name := fmt.Sprintf("%s stage %d", s.Kind, s.Number)
		if prev, ok := channels[s.RelayChannel]; ok {
			return fmt.Errorf("%w: relay channel %d used by %s and %s", ErrInvalidStageConfig, s.RelayChannel, prev, name)
		}
		channels[s.RelayChannel] = name
		byKind[s.Kind] = append(byKind[s.Kind], s)
	}

	for kind, list := range byKind {
		sorted := append([]StageConfig(nil), list...)
		SortStages(sorted)
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Number == sorted[i-1].Number {
				return fmt.Errorf("%w: duplicate %s stage number %d", ErrInvalidStageConfig, kind, sorted[i].Number)
			}
			if sorted[i].TempOffsetF < sorted[i-1].TempOffsetF {
				return fmt.Errorf("%w: %s stage %d offset %.2f is below stage %d offset %.2f",
					ErrInvalidStageConfig, kind, sorted[i].Number, sorted[i].TempOffsetF,
					sorted[i-1].Number, sorted[i-1].TempOffsetF)
			}
		}
	}
	return nil
}
