package engine

import (
	"time"

	"zombieRushServer/config"
	"zombieRushServer/game"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Options struct {
	Settings       game.Settings
	Mode           game.Mode
	SafeZone       time.Duration
	RespawnDelay   time.Duration
	TickInterval   time.Duration
	SpawnChance    float64
	InitialBalance decimal.Decimal
	DefaultBet     decimal.Decimal
	HistorySize    int

	Source     game.RandomSource
	Clock      func() time.Time
	NewRoundID func() string

	// DebugCrashLog logs every crash point at spawn.
	DebugCrashLog bool
}

func DefaultOptions() Options {
	return Options{
		Settings:       game.DefaultSettings(),
		Mode:           game.ModeTriple,
		SafeZone:       config.SafeZoneDuration,
		RespawnDelay:   config.RespawnDelay,
		TickInterval:   config.TickInterval,
		SpawnChance:    config.SpawnChancePerLane,
		InitialBalance: decimal.RequireFromString(config.InitialBalance),
		DefaultBet:     decimal.RequireFromString(config.DefaultBetAmount),
		HistorySize:    config.LaneHistorySize,
	}
}

func (o *Options) fill() {
	def := DefaultOptions()
	if o.Mode == "" {
		o.Mode = def.Mode
	}
	if o.Settings.TargetDuration == 0 {
		o.Settings = def.Settings
	}
	if o.SafeZone <= 0 {
		o.SafeZone = def.SafeZone
	}
	if o.RespawnDelay <= 0 {
		o.RespawnDelay = def.RespawnDelay
	}
	if o.TickInterval <= 0 {
		o.TickInterval = def.TickInterval
	}
	if o.SpawnChance <= 0 {
		o.SpawnChance = def.SpawnChance
	}
	if o.InitialBalance.IsNegative() {
		o.InitialBalance = decimal.Zero
	}
	if !o.DefaultBet.IsPositive() {
		o.DefaultBet = def.DefaultBet
	}
	if o.HistorySize <= 0 {
		o.HistorySize = def.HistorySize
	}
	if o.Source == nil {
		o.Source = game.NewRNG()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewRoundID == nil {
		o.NewRoundID = func() string { return uuid.NewString() }
	}
}
