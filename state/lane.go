package state

import (
	"math"
	"time"

	"zombieRushServer/game"

	"github.com/shopspring/decimal"
)

// Lane is the runtime state of one lane slot.
//
// Invariants held by the methods below:
//   - a non-zero Bet only exists in PhaseSafeZone or PhaseActive
//   - CrashPoint is fixed by Spawn for the whole round
//   - Multiplier never decreases within a round
type Lane struct {
	ID          int
	Phase       Phase
	ZombieType  game.ZombieType
	Config      game.LaneConfig // snapshot taken at spawn
	RoundID     string
	CrashPoint  float64
	Multiplier  float64
	Bet         decimal.Decimal
	SpawnTime   time.Time
	ActiveStart time.Time
	History     *History

	safeZone time.Duration
}

func NewLane(id int, safeZone time.Duration, historySize int) *Lane {
	return &Lane{
		ID:         id,
		Phase:      PhaseIdle,
		Multiplier: 1.0,
		History:    NewHistory(historySize),
		safeZone:   safeZone,
	}
}

// Spawn starts a new round: Idle or Crashed -> SafeZone.
func (l *Lane) Spawn(roundID string, z game.ZombieType, cfg game.LaneConfig, crashPoint float64, now time.Time) error {
	if l.Phase != PhaseIdle && l.Phase != PhaseCrashed {
		return ErrLaneBusy
	}
	l.Phase = PhaseSafeZone
	l.ZombieType = z
	l.Config = cfg
	l.RoundID = roundID
	l.CrashPoint = crashPoint
	l.Multiplier = 1.0
	l.Bet = decimal.Zero
	l.SpawnTime = now
	l.ActiveStart = time.Time{}
	return nil
}

// Advance recomputes the lane at now. The multiplier is derived from elapsed
// active time. The jackpot cap is checked before the crash point, so a call
// that lands at or past the cap pays the jackpot whatever the crash point.
func (l *Lane) Advance(now time.Time) Step {
	var step Step

	if l.Phase == PhaseSafeZone {
		activeAt := l.SpawnTime.Add(l.safeZone)
		if now.Before(activeAt) {
			return step
		}
		l.Phase = PhaseActive
		l.ActiveStart = activeAt
		step.Activated = true
	}
	if l.Phase != PhaseActive {
		return step
	}

	m := game.MultiplierAt(now.Sub(l.ActiveStart), l.Config.SpeedConstant)
	if m < l.Multiplier {
		m = l.Multiplier
	}

	switch {
	case m >= l.Config.MaxMultiplier:
		l.Multiplier = l.Config.MaxMultiplier
		step.Outcome = ResultJackpot
	case m >= l.CrashPoint:
		l.Multiplier = math.Max(l.Multiplier, l.CrashPoint)
		step.Outcome = ResultCrash
	default:
		l.Multiplier = m
	}
	step.Multiplier = l.Multiplier

	if step.Resolved() {
		l.Phase = PhaseCrashed
		step.Bet = l.Bet
		l.Bet = decimal.Zero
		l.History.Push(HistoryEntry{Result: step.Outcome, Multiplier: l.Multiplier, RoundID: l.RoundID, At: now})
	}
	return step
}

// CanBet reports why a bet would be rejected, or nil.
func (l *Lane) CanBet() error {
	if l.Bet.IsPositive() {
		return ErrBetAlreadyPlaced
	}
	if l.Phase != PhaseSafeZone {
		return ErrBettingClosed
	}
	return nil
}

// CashOut detaches the bet at the current multiplier. Call Advance first so
// the multiplier is current.
func (l *Lane) CashOut(now time.Time) (bet decimal.Decimal, multiplier float64, err error) {
	if l.Phase != PhaseActive || !l.Bet.IsPositive() {
		return decimal.Zero, 0, ErrNoActiveBet
	}
	bet = l.Bet
	l.Bet = decimal.Zero
	l.History.Push(HistoryEntry{Result: ResultWin, Multiplier: l.Multiplier, RoundID: l.RoundID, At: now})
	return bet, l.Multiplier, nil
}

// Reset returns the lane to Idle and hands back any bet still attached.
func (l *Lane) Reset() decimal.Decimal {
	bet := l.Bet
	l.Phase = PhaseIdle
	l.RoundID = ""
	l.CrashPoint = 0
	l.Multiplier = 1.0
	l.Bet = decimal.Zero
	l.SpawnTime = time.Time{}
	l.ActiveStart = time.Time{}
	return bet
}

// View builds the public snapshot at now.
func (l *Lane) View(now time.Time) LaneView {
	v := LaneView{
		ID:            l.ID,
		Phase:         l.Phase,
		ZombieType:    l.ZombieType,
		RoundID:       l.RoundID,
		Multiplier:    l.Multiplier,
		Bet:           l.Bet,
		MaxMultiplier: l.Config.MaxMultiplier,
		HouseEdge:     l.Config.HouseEdge,
		History:       l.History.Entries(),
	}
	if l.Phase == PhaseSafeZone {
		if left := l.SpawnTime.Add(l.safeZone).Sub(now); left > 0 {
			v.SafeZoneLeftMs = left.Milliseconds()
		}
	}
	return v
}
