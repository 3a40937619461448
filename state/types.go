package state

import (
	"time"

	"zombieRushServer/game"

	"github.com/shopspring/decimal"
)

// ==============================================================================
// LANE STATE
// ==============================================================================
//
// A lane is a fixed slot that hosts one zombie per round. It is created once
// in PhaseIdle and only ever reset, never destroyed. Nothing in this package
// locks: the engine serializes every call.
//
// ==============================================================================

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSafeZone Phase = "safe_zone"
	PhaseActive   Phase = "active"
	PhaseCrashed  Phase = "crashed"
)

// Result is how a round (or a bet within it) ended.
type Result string

const (
	ResultWin     Result = "win"
	ResultCrash   Result = "crash"
	ResultJackpot Result = "jackpot"
	ResultRefund  Result = "refund"
)

type HistoryEntry struct {
	Result     Result    `json:"result"`
	Multiplier float64   `json:"multiplier"`
	RoundID    string    `json:"roundId"`
	At         time.Time `json:"at"`
}

// Step is what a single Advance call did to a lane. Bet is the stake still
// attached when the round resolved; it has already been detached from the
// lane.
type Step struct {
	Activated  bool
	Outcome    Result // empty while the round is still running
	Multiplier float64
	Bet        decimal.Decimal
}

func (s Step) Resolved() bool {
	return s.Outcome != ""
}

// Settlement is a credited or forfeited bet.
type Settlement struct {
	Lane       int             `json:"lane"`
	RoundID    string          `json:"roundId"`
	ZombieType game.ZombieType `json:"zombieType"`
	Result     Result          `json:"result"`
	Bet        decimal.Decimal `json:"bet"`
	Multiplier float64         `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
	Profit     decimal.Decimal `json:"profit"`
	Balance    decimal.Decimal `json:"balance"`
}

// LaneView is the public snapshot of a lane. The crash point stays hidden.
type LaneView struct {
	ID             int             `json:"id"`
	Phase          Phase           `json:"phase"`
	ZombieType     game.ZombieType `json:"zombieType"`
	RoundID        string          `json:"roundId,omitempty"`
	Multiplier     float64         `json:"multiplier"`
	Bet            decimal.Decimal `json:"bet"`
	MaxMultiplier  float64         `json:"maxMultiplier"`
	HouseEdge      float64         `json:"houseEdge"`
	SafeZoneLeftMs int64           `json:"safeZoneLeftMs"`
	History        []HistoryEntry  `json:"history"`
}
