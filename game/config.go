package game

import (
	"fmt"
	"math"
	"time"

	"zombieRushServer/config"
)

// LaneConfig is the crash model for one zombie type.
type LaneConfig struct {
	MaxMultiplier float64 `json:"maxMultiplier"`
	HouseEdge     float64 `json:"houseEdge"`
	SpeedConstant float64 `json:"speedConstant"`
}

// RTP is the return to player in percent.
func (c LaneConfig) RTP() float64 {
	return (1 - c.HouseEdge) * 100
}

// ConfigError reports a rejected configuration value.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s=%v: %s", e.Field, e.Value, e.Reason)
}

// LaneParams are the tunable inputs of a LaneConfig. The speed constant is
// always derived.
type LaneParams struct {
	MaxMultiplier float64 `json:"maxMultiplier"`
	HouseEdge     float64 `json:"houseEdge"`
}

func (p LaneParams) validate(key string) error {
	if math.IsNaN(p.MaxMultiplier) || math.IsInf(p.MaxMultiplier, 0) || p.MaxMultiplier <= 1 {
		return &ConfigError{Field: key + ".maxMultiplier", Value: p.MaxMultiplier, Reason: "must be greater than 1"}
	}
	if math.IsNaN(p.HouseEdge) || p.HouseEdge < 0 || p.HouseEdge >= 1 {
		return &ConfigError{Field: key + ".houseEdge", Value: p.HouseEdge, Reason: "must be in [0, 1)"}
	}
	return nil
}

// HouseEdgeFromRTP converts a return-to-player percentage into a house edge.
func HouseEdgeFromRTP(rtp float64) float64 {
	return (100 - rtp) / 100
}

// Settings is the full lane table plus the shared timing and debug knobs.
// A non-zero ForceCrashPoint fixes every crash point.
type Settings struct {
	Lanes           [NumZombieTypes]LaneConfig `json:"lanes"`
	TargetDuration  time.Duration              `json:"targetDuration"`
	ForceCrashPoint float64                    `json:"forceCrashPoint"`
}

// SettingsUpdate carries the inputs of NewSettings.
type SettingsUpdate struct {
	Lanes           [NumZombieTypes]LaneParams
	TargetDuration  time.Duration
	ForceCrashPoint float64
}

// NewSettings validates params and derives every lane's speed constant so
// that each lane reaches its max multiplier at exactly target.
func NewSettings(u SettingsUpdate) (Settings, error) {
	if u.TargetDuration <= 0 {
		return Settings{}, &ConfigError{Field: "targetDuration", Value: u.TargetDuration.Seconds(), Reason: "must be positive"}
	}
	if math.IsNaN(u.ForceCrashPoint) || u.ForceCrashPoint < 0 || (u.ForceCrashPoint > 0 && u.ForceCrashPoint < 1) {
		return Settings{}, &ConfigError{Field: "forceCrashPoint", Value: u.ForceCrashPoint, Reason: "must be 0 (off) or at least 1"}
	}

	s := Settings{TargetDuration: u.TargetDuration, ForceCrashPoint: u.ForceCrashPoint}
	for i, p := range u.Lanes {
		if err := p.validate(ZombieType(i).ConfigKey()); err != nil {
			return Settings{}, err
		}
		s.Lanes[i] = LaneConfig{
			MaxMultiplier: p.MaxMultiplier,
			HouseEdge:     p.HouseEdge,
			SpeedConstant: SpeedConstant(p.MaxMultiplier, u.TargetDuration),
		}
	}
	return s, nil
}

// DefaultUpdate returns the stock lane table.
func DefaultUpdate() SettingsUpdate {
	return SettingsUpdate{
		Lanes: [NumZombieTypes]LaneParams{
			Slow:   {MaxMultiplier: config.SafeMaxMultiplier, HouseEdge: config.DefaultHouseEdge},
			Medium: {MaxMultiplier: config.MediumMaxMultiplier, HouseEdge: config.DefaultHouseEdge},
			Wild:   {MaxMultiplier: config.WildMaxMultiplier, HouseEdge: config.DefaultHouseEdge},
		},
		TargetDuration:  config.TargetDuration,
		ForceCrashPoint: config.NoForcedCrashPoint,
	}
}

func DefaultSettings() Settings {
	s, err := NewSettings(DefaultUpdate())
	if err != nil {
		panic(err)
	}
	return s
}

// Update returns the inputs these settings were built from.
func (s Settings) Update() SettingsUpdate {
	u := SettingsUpdate{TargetDuration: s.TargetDuration, ForceCrashPoint: s.ForceCrashPoint}
	for i, c := range s.Lanes {
		u.Lanes[i] = LaneParams{MaxMultiplier: c.MaxMultiplier, HouseEdge: c.HouseEdge}
	}
	return u
}

func (s Settings) Lane(z ZombieType) LaneConfig {
	return s.Lanes[z]
}

// CrashPointFor draws the crash point for a zombie of type z, honouring the
// debug override.
func (s Settings) CrashPointFor(z ZombieType, draw float64) float64 {
	cfg := s.Lanes[z]
	if s.ForceCrashPoint > 0 {
		return ForcedCrashPoint(cfg, s.ForceCrashPoint)
	}
	return CrashPoint(cfg, draw)
}

// ApplyLaneFile overlays f onto u. A nil file returns u unchanged.
func (u SettingsUpdate) ApplyLaneFile(f *config.LaneFile) (SettingsUpdate, error) {
	if f == nil {
		return u, nil
	}
	if f.TargetDurationSeconds != nil {
		u.TargetDuration = time.Duration(*f.TargetDurationSeconds * float64(time.Second))
	}
	if f.ForceCrashPoint != nil {
		u.ForceCrashPoint = *f.ForceCrashPoint
	}
	for key, entry := range f.Lanes {
		z, err := ZombieTypeForKey(key)
		if err != nil {
			return u, err
		}
		p := &u.Lanes[z]
		if entry.MaxMultiplier != nil {
			p.MaxMultiplier = *entry.MaxMultiplier
		}
		switch {
		case entry.HouseEdge != nil:
			p.HouseEdge = *entry.HouseEdge
		case entry.RTP != nil:
			p.HouseEdge = HouseEdgeFromRTP(*entry.RTP)
		}
	}
	return u, nil
}

// LoadSettings builds settings from the defaults overlaid with the lane file
// at path, if it exists.
func LoadSettings(path string) (Settings, error) {
	f, err := config.LoadLaneFile(path)
	if err != nil {
		return Settings{}, err
	}
	u, err := DefaultUpdate().ApplyLaneFile(f)
	if err != nil {
		return Settings{}, err
	}
	return NewSettings(u)
}
