package config

import "time"

/* =========================
   GAME TIMING
========================= */

const (
	TickInterval     = 50 * time.Millisecond  // one engine step
	SafeZoneDuration = 3500 * time.Millisecond // betting window after a spawn
	RespawnDelay     = 500 * time.Millisecond  // pause between a finished wave and the next
	TargetDuration   = 10 * time.Second        // active time for every lane to reach its max multiplier
)

/* =========================
   LANE DEFAULTS
========================= */

const (
	SafeMaxMultiplier   = 4.0
	MediumMaxMultiplier = 10.0
	WildMaxMultiplier   = 50.0
	DefaultHouseEdge    = 0.05

	// Fixed mode: chance that each lane joins a wave
	SpawnChancePerLane = 0.5

	// Per-lane ring buffer
	LaneHistorySize = 10

	// Debug crash override is disabled when zero
	NoForcedCrashPoint = 0.0
)

/* =========================
   ACCOUNT
========================= */

const (
	InitialBalance   = "1000.00"
	DefaultBetAmount = "10"
	MoneyPlaces      = 2
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Open bet mirror, key: rush:lane:{lane}
	LiveBetTTL = 10 * time.Minute

	// Balance mirror, key: rush:balance
	BalanceTTL = 1 * time.Hour

	LiveBetQueueSize = 256
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisLaneBetKey = "rush:lane:%d" // rush:lane:{lane} (HASH)
	RedisBalanceKey = "rush:balance"
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	MaxOpenConns    = 25
	MinOpenConns    = 5
	ConnMaxLifetime = 5 * time.Minute

	// Journal writes run off the engine path
	JournalWriteTimeout = 5 * time.Second
	JournalRecentLimit  = 50
)

/* =========================
   API CONFIGURATION
========================= */

const (
	ServerPort = "8080"
	ServerHost = "0.0.0.0"

	AllowOrigin = "*"

	ShutdownTimeout = 10 * time.Second
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBufferSize  = 256
	WSBroadcastBuffer = 512

	MaxMessageSize = 512 * 1024 // 512KB
)
