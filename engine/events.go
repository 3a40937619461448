package engine

import (
	"time"

	"zombieRushServer/game"
	"zombieRushServer/state"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventSpawn          EventType = "spawn"
	EventPhaseChange    EventType = "phase_change"
	EventTick           EventType = "tick"
	EventBetPlaced      EventType = "bet_placed"
	EventCashOut        EventType = "cash_out"
	EventCrash          EventType = "crash"
	EventJackpot        EventType = "jackpot"
	EventRefund         EventType = "refund"
	EventWave           EventType = "wave"
	EventGameStarted    EventType = "game_started"
	EventGameStopped    EventType = "game_stopped"
	EventConfigApplied  EventType = "config_applied"
	EventModeSwitched   EventType = "mode_switched"
	EventHistoryCleared EventType = "history_cleared"
	EventBetAmount      EventType = "bet_amount"
)

// NoLane marks events that are not tied to a lane slot.
const NoLane = -1

// Event is a state transition reported to listeners. Money fields are zero
// when they do not apply.
type Event struct {
	Type       EventType       `json:"type"`
	Lane       int             `json:"lane"`
	RoundID    string          `json:"roundId,omitempty"`
	ZombieType string          `json:"zombieType,omitempty"`
	Phase      state.Phase     `json:"phase,omitempty"`
	Multiplier float64         `json:"multiplier,omitempty"`
	Bet        decimal.Decimal `json:"bet"`
	Payout     decimal.Decimal `json:"payout"`
	Balance    decimal.Decimal `json:"balance"`
	Lanes      []int           `json:"lanes,omitempty"`
	Mode       game.Mode       `json:"mode,omitempty"`
	Time       time.Time       `json:"time"`
}

// Settles reports whether the event closes a bet.
func (e Event) Settles() bool {
	switch e.Type {
	case EventCashOut, EventJackpot, EventRefund:
		return true
	case EventCrash:
		return e.Bet.IsPositive()
	}
	return false
}

// Listener receives engine events in the order they happened. OnEvent runs
// outside the engine lock and may call back into the engine; events from
// such a call are delivered after the current batch. It should not block.
type Listener interface {
	OnEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

func settlementEvent(typ EventType, s state.Settlement, now time.Time) Event {
	return Event{
		Type:       typ,
		Lane:       s.Lane,
		RoundID:    s.RoundID,
		ZombieType: s.ZombieType.String(),
		Multiplier: s.Multiplier,
		Bet:        s.Bet,
		Payout:     s.Payout,
		Balance:    s.Balance,
		Time:       now,
	}
}
