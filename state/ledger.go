package state

import (
	"time"

	"zombieRushServer/config"
	"zombieRushServer/game"

	"github.com/shopspring/decimal"
)

// TypeStats are session totals for one zombie type.
type TypeStats struct {
	Rounds   int             `json:"rounds"`
	Bets     int             `json:"bets"`
	Wins     int             `json:"wins"`
	Losses   int             `json:"losses"`
	Jackpots int             `json:"jackpots"`
	Refunds  int             `json:"refunds"`
	Wagered  decimal.Decimal `json:"wagered"`
	Returned decimal.Decimal `json:"returned"`
}

// RTP is returned/wagered in percent, or 0 before the first bet.
func (s TypeStats) RTP() float64 {
	if !s.Wagered.IsPositive() {
		return 0
	}
	return s.Returned.Div(s.Wagered).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Ledger owns the account balance and settles bets against lanes. The
// balance only moves on bet placement (debit) and settlement (credit).
type Ledger struct {
	balance decimal.Decimal
	stats   [game.NumZombieTypes]TypeStats
}

func NewLedger(initial decimal.Decimal) *Ledger {
	return &Ledger{balance: initial}
}

func (l *Ledger) Balance() decimal.Decimal {
	return l.balance
}

// PlaceBet debits amount and attaches it to lane.
func (l *Ledger) PlaceBet(lane *Lane, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(l.balance) {
		return ErrInsufficientFunds
	}
	if err := lane.CanBet(); err != nil {
		return err
	}

	l.balance = l.balance.Sub(amount)
	lane.Bet = amount

	st := &l.stats[lane.ZombieType]
	st.Bets++
	st.Wagered = st.Wagered.Add(amount)
	return nil
}

// CashOut pays the lane's bet at its current multiplier.
func (l *Ledger) CashOut(lane *Lane, now time.Time) (Settlement, error) {
	bet, multiplier, err := lane.CashOut(now)
	if err != nil {
		return Settlement{}, err
	}
	payout := Payout(bet, multiplier)
	l.credit(payout)

	st := &l.stats[lane.ZombieType]
	st.Wins++
	st.Returned = st.Returned.Add(payout)

	return l.settlement(lane, ResultWin, bet, multiplier, payout), nil
}

// Settle resolves a step that ended the round. A jackpot pays the detached
// bet at the cap, a crash forfeits it.
func (l *Ledger) Settle(lane *Lane, step Step) Settlement {
	st := &l.stats[lane.ZombieType]
	st.Rounds++

	payout := decimal.Zero
	switch step.Outcome {
	case ResultJackpot:
		if step.Bet.IsPositive() {
			payout = Payout(step.Bet, step.Multiplier)
			l.credit(payout)
			st.Jackpots++
			st.Returned = st.Returned.Add(payout)
		}
	case ResultCrash:
		if step.Bet.IsPositive() {
			st.Losses++
		}
	}
	return l.settlement(lane, step.Outcome, step.Bet, step.Multiplier, payout)
}

// Refund detaches and credits back an unresolved bet. It reports false when
// the lane holds none.
func (l *Ledger) Refund(lane *Lane) (Settlement, bool) {
	bet := lane.Bet
	if !bet.IsPositive() {
		return Settlement{}, false
	}
	lane.Bet = decimal.Zero
	l.credit(bet)

	st := &l.stats[lane.ZombieType]
	st.Refunds++
	st.Wagered = st.Wagered.Sub(bet)
	st.Bets--

	return l.settlement(lane, ResultRefund, bet, 1.0, bet), true
}

func (l *Ledger) Stats() [game.NumZombieTypes]TypeStats {
	return l.stats
}

func (l *Ledger) credit(amount decimal.Decimal) {
	l.balance = l.balance.Add(amount)
}

func (l *Ledger) settlement(lane *Lane, result Result, bet decimal.Decimal, multiplier float64, payout decimal.Decimal) Settlement {
	return Settlement{
		Lane:       lane.ID,
		RoundID:    lane.RoundID,
		ZombieType: lane.ZombieType,
		Result:     result,
		Bet:        bet,
		Multiplier: multiplier,
		Payout:     payout,
		Profit:     payout.Sub(bet),
		Balance:    l.balance,
	}
}

// Payout is bet x multiplier rounded to cents.
func Payout(bet decimal.Decimal, multiplier float64) decimal.Decimal {
	return bet.Mul(decimal.NewFromFloat(multiplier)).Round(config.MoneyPlaces)
}
