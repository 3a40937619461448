package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"zombieRushServer/config"
	"zombieRushServer/game"
	"zombieRushServer/state"

	"github.com/shopspring/decimal"
)

var (
	ErrGameRunning    = fmt.Errorf("%w: stop the game before changing modes", state.ErrInvalidState)
	ErrAlreadyRunning = fmt.Errorf("%w: game already running", state.ErrInvalidState)
	ErrNotRunning     = fmt.Errorf("%w: game is not running", state.ErrInvalidState)
	ErrNothingToDo    = fmt.Errorf("%w: lane accepts no action right now", state.ErrInvalidState)
	ErrUnknownLane    = errors.New("unknown lane")
)

// Engine owns every lane, the account and the wave clock. All mutation goes
// through mu; listeners are notified after it is released, in the order the
// events were emitted.
type Engine struct {
	mu sync.Mutex

	opts      Options
	settings  game.Settings
	mode      game.Mode
	running   bool
	betAmount decimal.Decimal

	lanes     [game.NumZombieTypes]*state.Lane
	ledger    *state.Ledger
	waves     *WaveScheduler
	scheduler Scheduler

	respawnScheduled bool

	// outbox holds events in the order they happened under mu. One caller at
	// a time drains it, so listeners see that order.
	outMu       sync.Mutex
	outbox      []Event
	dispatching bool

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int
}

func New(opts Options) (*Engine, error) {
	opts.fill()
	if opts.Mode.LaneCount() == 0 {
		return nil, fmt.Errorf("invalid mode %q", opts.Mode)
	}
	settings, err := game.NewSettings(opts.Settings.Update())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:      opts,
		settings:  settings,
		mode:      opts.Mode,
		betAmount: opts.DefaultBet,
		ledger:    state.NewLedger(opts.InitialBalance),
		waves:     NewWaveScheduler(opts.Source, opts.SpawnChance),
		listeners: make(map[int]Listener),
	}
	for i := range e.lanes {
		e.lanes[i] = state.NewLane(i, opts.SafeZone, opts.HistorySize)
	}
	return e, nil
}

// Subscribe registers l and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) func() {
	e.listenersMu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = l
	e.listenersMu.Unlock()

	return func() {
		e.listenersMu.Lock()
		delete(e.listeners, id)
		e.listenersMu.Unlock()
	}
}

/* =========================
   GAME CONTROL
========================= */

// Start spawns the first wave and lets Tick drive the lanes.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	now := e.opts.Clock()
	e.running = true
	e.emit(Event{Type: EventGameStarted, Lane: NoLane, Mode: e.mode, Balance: e.ledger.Balance(), Time: now})
	e.spawnWave(now)
	mode := e.mode
	e.mu.Unlock()

	log.Printf("🚀 Game started (%s mode)", mode)
	e.flush()
	return nil
}

// Stop clears deferred actions and resets every lane to Idle. Bets still
// attached are refunded.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	now := e.opts.Clock()
	e.running = false
	e.scheduler.Clear()
	e.respawnScheduled = false

	refunded := 0
	for _, lane := range e.lanes {
		if s, ok := e.ledger.Refund(lane); ok {
			refunded++
			e.emit(settlementEvent(EventRefund, s, now))
		}
		if lane.Phase != state.PhaseIdle {
			lane.Reset()
			e.emit(Event{Type: EventPhaseChange, Lane: lane.ID, Phase: state.PhaseIdle, Time: now})
		}
	}
	e.emit(Event{Type: EventGameStopped, Lane: NoLane, Mode: e.mode, Balance: e.ledger.Balance(), Time: now})
	e.mu.Unlock()

	log.Printf("🛑 Game stopped (%d bets refunded)", refunded)
	e.flush()
	return nil
}

// SwitchMode changes the lane layout. It is rejected while running.
func (e *Engine) SwitchMode(mode game.Mode) error {
	if mode.LaneCount() == 0 {
		return fmt.Errorf("invalid mode %q", mode)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrGameRunning
	}
	now := e.opts.Clock()
	e.mode = mode
	for _, lane := range e.lanes {
		lane.Reset()
	}
	e.emit(Event{Type: EventModeSwitched, Lane: NoLane, Mode: mode, Time: now})
	e.mu.Unlock()

	log.Printf("🔀 Switched to %s mode", mode)
	e.flush()
	return nil
}

// ApplyConfig validates u and swaps it in. Lanes keep the config they
// spawned with; the new table applies from the next spawn. On error the
// current settings are kept.
func (e *Engine) ApplyConfig(u game.SettingsUpdate) (game.Settings, error) {
	return e.applyConfig(func(game.Settings) (game.SettingsUpdate, error) {
		return u, nil
	})
}

// ApplyLaneFile overlays f on the current settings and applies the result.
// Fields f leaves out keep their current values. The read and the swap
// happen under one lock, so concurrent partial updates do not drop fields.
func (e *Engine) ApplyLaneFile(f *config.LaneFile) (game.Settings, error) {
	if err := f.Validate(); err != nil {
		return game.Settings{}, err
	}
	return e.applyConfig(func(cur game.Settings) (game.SettingsUpdate, error) {
		return cur.Update().ApplyLaneFile(f)
	})
}

func (e *Engine) applyConfig(next func(cur game.Settings) (game.SettingsUpdate, error)) (game.Settings, error) {
	e.mu.Lock()
	u, err := next(e.settings)
	if err != nil {
		e.mu.Unlock()
		return game.Settings{}, err
	}
	settings, err := game.NewSettings(u)
	if err != nil {
		e.mu.Unlock()
		return game.Settings{}, err
	}
	e.settings = settings
	e.emit(Event{Type: EventConfigApplied, Lane: NoLane, Time: e.opts.Clock()})
	e.mu.Unlock()

	log.Printf("⚙️  Config applied (target %s, forced crash %.2f)", settings.TargetDuration, settings.ForceCrashPoint)
	e.flush()
	return settings, nil
}

// SetBetAmount sets the stake used when a bet names no amount.
func (e *Engine) SetBetAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return state.ErrInvalidAmount
	}
	e.mu.Lock()
	e.betAmount = amount
	e.emit(Event{Type: EventBetAmount, Lane: NoLane, Bet: amount, Time: e.opts.Clock()})
	e.mu.Unlock()

	e.flush()
	return nil
}

// ClearHistory empties every lane's history buffer.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	for _, lane := range e.lanes {
		lane.History.Clear()
	}
	e.emit(Event{Type: EventHistoryCleared, Lane: NoLane, Time: e.opts.Clock()})
	e.mu.Unlock()

	e.flush()
}

/* =========================
   BETTING
========================= */

// PlaceBet stakes amount on lane, or the configured bet amount when amount
// is zero. The lane is brought up to date before the phase is checked.
func (e *Engine) PlaceBet(lane int, amount decimal.Decimal) (state.Settlement, error) {
	e.mu.Lock()
	s, err := e.placeBet(lane, amount, e.opts.Clock())
	e.mu.Unlock()

	e.flush()
	return s, err
}

// CashOut settles lane's bet at the current multiplier.
func (e *Engine) CashOut(lane int) (state.Settlement, error) {
	e.mu.Lock()
	s, err := e.cashOut(lane, e.opts.Clock())
	e.mu.Unlock()

	e.flush()
	return s, err
}

// Act bets during the safe zone and cashes out while active, whichever the
// lane currently allows.
func (e *Engine) Act(lane int) (EventType, state.Settlement, error) {
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		e.flush()
	}()

	now := e.opts.Clock()
	l, err := e.lane(lane)
	if err != nil {
		return "", state.Settlement{}, err
	}
	e.advanceLane(l, now)

	switch {
	case l.Phase == state.PhaseSafeZone && l.Bet.IsZero():
		s, err := e.placeBet(lane, decimal.Zero, now)
		return EventBetPlaced, s, err
	case l.Phase == state.PhaseActive && l.Bet.IsPositive():
		s, err := e.cashOut(lane, now)
		return EventCashOut, s, err
	}
	return "", state.Settlement{}, ErrNothingToDo
}

func (e *Engine) placeBet(lane int, amount decimal.Decimal, now time.Time) (state.Settlement, error) {
	l, err := e.lane(lane)
	if err != nil {
		return state.Settlement{}, err
	}
	if amount.IsZero() {
		amount = e.betAmount
	}
	e.advanceLane(l, now)

	if err := e.ledger.PlaceBet(l, amount); err != nil {
		return state.Settlement{}, err
	}
	s := state.Settlement{
		Lane:       l.ID,
		RoundID:    l.RoundID,
		ZombieType: l.ZombieType,
		Bet:        amount,
		Multiplier: l.Multiplier,
		Balance:    e.ledger.Balance(),
	}
	e.emit(settlementEvent(EventBetPlaced, s, now))
	return s, nil
}

func (e *Engine) cashOut(lane int, now time.Time) (state.Settlement, error) {
	l, err := e.lane(lane)
	if err != nil {
		return state.Settlement{}, err
	}
	e.advanceLane(l, now)

	s, err := e.ledger.CashOut(l, now)
	if err != nil {
		return state.Settlement{}, err
	}
	e.emit(settlementEvent(EventCashOut, s, now))
	return s, nil
}

/* =========================
   CLOCK
========================= */

// Tick advances every lane to the current clock reading.
func (e *Engine) Tick() {
	e.mu.Lock()
	e.step(e.opts.Clock())
	e.mu.Unlock()

	e.flush()
}

// Run ticks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	log.Printf("⏱️  Engine loop started (%s tick)", e.opts.TickInterval)
	for {
		select {
		case <-ctx.Done():
			log.Println("⏱️  Engine loop stopped")
			return nil
		case <-ticker.C:
			e.Tick()
		}
	}
}

func (e *Engine) step(now time.Time) {
	if !e.running {
		return
	}
	e.scheduler.RunDue(now)

	active := e.activeLanes()
	for _, l := range active {
		e.advanceLane(l, now)
		if l.Phase == state.PhaseActive {
			e.emit(Event{Type: EventTick, Lane: l.ID, RoundID: l.RoundID, Multiplier: l.Multiplier, Time: now})
		}
	}

	if !e.respawnScheduled && WaveFinished(active) {
		e.respawnScheduled = true
		e.scheduler.After(now, e.opts.RespawnDelay, func(at time.Time) {
			e.respawnScheduled = false
			if e.running {
				e.spawnWave(at)
			}
		})
	}
}

// advanceLane brings one lane up to now and settles it if the round ended.
func (e *Engine) advanceLane(l *state.Lane, now time.Time) {
	if !e.running {
		return
	}
	step := l.Advance(now)
	if step.Activated {
		e.emit(Event{Type: EventPhaseChange, Lane: l.ID, RoundID: l.RoundID, Phase: state.PhaseActive, Multiplier: 1.0, Time: now})
	}
	if !step.Resolved() {
		return
	}

	s := e.ledger.Settle(l, step)
	typ := EventCrash
	if step.Outcome == state.ResultJackpot {
		typ = EventJackpot
	}
	e.emit(settlementEvent(typ, s, now))
	e.emit(Event{Type: EventPhaseChange, Lane: l.ID, RoundID: l.RoundID, Phase: state.PhaseCrashed, Multiplier: step.Multiplier, Time: now})
}

func (e *Engine) spawnWave(now time.Time) {
	active := e.activeLanes()
	for _, l := range active {
		if l.Phase == state.PhaseCrashed {
			l.Reset()
			e.emit(Event{Type: EventPhaseChange, Lane: l.ID, Phase: state.PhaseIdle, Time: now})
		}
	}

	plan := e.waves.Plan(e.mode)
	spawned := make([]int, 0, len(plan))
	for _, sp := range plan {
		l := e.lanes[sp.Lane]
		crash := e.settings.CrashPointFor(sp.ZombieType, e.opts.Source.Float64())
		if err := l.Spawn(e.opts.NewRoundID(), sp.ZombieType, e.settings.Lane(sp.ZombieType), crash, now); err != nil {
			log.Printf("⚠️  Lane %d skipped spawn: %v", l.ID, err)
			continue
		}
		if e.opts.DebugCrashLog {
			log.Printf("🎲 Lane %d %s zombie crashes at %.2fx (round %s)", l.ID, sp.ZombieType, crash, l.RoundID)
		}
		spawned = append(spawned, l.ID)
		e.emit(Event{
			Type:       EventSpawn,
			Lane:       l.ID,
			RoundID:    l.RoundID,
			ZombieType: sp.ZombieType.String(),
			Phase:      state.PhaseSafeZone,
			Multiplier: 1.0,
			Time:       now,
		})
	}
	e.emit(Event{Type: EventWave, Lane: NoLane, Lanes: spawned, Mode: e.mode, Time: now})
}

/* =========================
   READ SIDE
========================= */

type Snapshot struct {
	Running   bool                                 `json:"running"`
	Mode      game.Mode                            `json:"mode"`
	Balance   decimal.Decimal                      `json:"balance"`
	BetAmount decimal.Decimal                      `json:"betAmount"`
	Lanes     []state.LaneView                     `json:"lanes"`
	Settings  game.Settings                        `json:"settings"`
	Stats     [game.NumZombieTypes]state.TypeStats `json:"stats"`
	Time      time.Time                            `json:"time"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.opts.Clock()
	snap := Snapshot{
		Running:   e.running,
		Mode:      e.mode,
		Balance:   e.ledger.Balance(),
		BetAmount: e.betAmount,
		Settings:  e.settings,
		Stats:     e.ledger.Stats(),
		Time:      now,
	}
	for _, l := range e.activeLanes() {
		snap.Lanes = append(snap.Lanes, l.View(now))
	}
	return snap
}

// History returns lane's results, newest first.
func (e *Engine) History(lane int) ([]state.HistoryEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, err := e.lane(lane)
	if err != nil {
		return nil, err
	}
	return l.History.Entries(), nil
}

func (e *Engine) Balance() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance()
}

func (e *Engine) Settings() game.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

/* =========================
   INTERNALS
========================= */

func (e *Engine) activeLanes() []*state.Lane {
	return e.lanes[:e.mode.LaneCount()]
}

func (e *Engine) lane(id int) (*state.Lane, error) {
	if id < 0 || id >= e.mode.LaneCount() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLane, id)
	}
	return e.lanes[id], nil
}

// emit queues ev. Callers hold mu, so the outbox is in engine order.
func (e *Engine) emit(ev Event) {
	e.outMu.Lock()
	e.outbox = append(e.outbox, ev)
	e.outMu.Unlock()
}

// flush delivers queued events. Callers must not hold mu. When another
// goroutine (or an outer call on this one, via a re-entrant listener) is
// already delivering, flush leaves the events to it.
func (e *Engine) flush() {
	e.outMu.Lock()
	if e.dispatching {
		e.outMu.Unlock()
		return
	}
	e.dispatching = true
	for len(e.outbox) > 0 {
		events := e.outbox
		e.outbox = nil
		e.outMu.Unlock()

		e.dispatch(events)

		e.outMu.Lock()
	}
	e.dispatching = false
	e.outMu.Unlock()
}

func (e *Engine) dispatch(events []Event) {
	e.listenersMu.RLock()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.listenersMu.RUnlock()

	for _, ev := range events {
		for _, l := range listeners {
			l.OnEvent(ev)
		}
	}
}
