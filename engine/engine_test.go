package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"zombieRushServer/config"
	"zombieRushServer/game"
	"zombieRushServer/state"

	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) ofType(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T, src game.RandomSource, edit func(o *Options)) (*Engine, *fakeClock, *recorder) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	round := 0

	opts := DefaultOptions()
	opts.Source = src
	opts.Clock = clk.Now
	opts.NewRoundID = func() string {
		round++
		return fmt.Sprintf("round-%d", round)
	}
	if edit != nil {
		edit(&opts)
	}

	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := &recorder{}
	e.Subscribe(rec)
	return e, clk, rec
}

// forced returns options for a single slow lane with a fixed crash point.
func forced(crash float64) func(o *Options) {
	return func(o *Options) {
		o.Mode = game.ModeSingle
		u := game.DefaultUpdate()
		u.ForceCrashPoint = crash
		s, err := game.NewSettings(u)
		if err != nil {
			panic(err)
		}
		o.Settings = s
	}
}

// runUntil ticks in 50ms steps until typ is seen or limit elapses.
func runUntil(t *testing.T, e *Engine, clk *fakeClock, rec *recorder, typ EventType, limit time.Duration) Event {
	t.Helper()
	for waited := time.Duration(0); waited <= limit; waited += 50 * time.Millisecond {
		e.Tick()
		if got := rec.ofType(typ); len(got) > 0 {
			return got[len(got)-1]
		}
		clk.Advance(50 * time.Millisecond)
	}
	t.Fatalf("no %s event within %v", typ, limit)
	return Event{}
}

func TestStartSpawnsFixedWave(t *testing.T) {
	// Lane draws 0.4, 0.9, 0.9 pick lane 0 only, then 0.5 is its crash draw.
	src := &game.ScriptedSource{Draws: []float64{0.4, 0.9, 0.9, 0.5}}
	e, _, rec := newTestEngine(t, src, nil)

	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start: err = %v", err)
	}

	spawns := rec.ofType(EventSpawn)
	if len(spawns) != 1 || spawns[0].Lane != 0 || spawns[0].ZombieType != "slow" {
		t.Fatalf("spawns = %+v", spawns)
	}
	waves := rec.ofType(EventWave)
	if len(waves) != 1 || len(waves[0].Lanes) != 1 {
		t.Fatalf("waves = %+v", waves)
	}

	snap := e.Snapshot()
	if len(snap.Lanes) != 3 || snap.Lanes[0].Phase != state.PhaseSafeZone || snap.Lanes[1].Phase != state.PhaseIdle {
		t.Errorf("snapshot lanes = %+v", snap.Lanes)
	}
}

func TestFixedWaveNeverEmpty(t *testing.T) {
	t.Run("Forced", func(t *testing.T) {
		w := NewWaveScheduler(&game.ScriptedSource{Draws: []float64{0.9}, Ints: []int{2}}, 0.5)
		plan := w.Plan(game.ModeTriple)
		if len(plan) != 1 || plan[0].Lane != 2 || plan[0].ZombieType != game.Wild {
			t.Fatalf("plan = %+v", plan)
		}
	})

	t.Run("Seeded", func(t *testing.T) {
		w := NewWaveScheduler(game.NewSeededRNG("waves"), 0.5)
		counts := make([]int, 3)
		for i := 0; i < 5000; i++ {
			plan := w.Plan(game.ModeTriple)
			if len(plan) == 0 {
				t.Fatal("empty fixed wave")
			}
			for _, sp := range plan {
				if sp.ZombieType != game.ZombieType(sp.Lane) {
					t.Fatalf("lane %d got type %s", sp.Lane, sp.ZombieType)
				}
				counts[sp.Lane]++
			}
		}
		for lane, c := range counts {
			if c < 2500 {
				t.Errorf("lane %d joined only %d of 5000 waves", lane, c)
			}
		}
	})

	t.Run("Dynamic", func(t *testing.T) {
		w := NewWaveScheduler(&game.ScriptedSource{Ints: []int{2, 0}}, 0.5)
		plan := w.Plan(game.ModeDouble)
		if len(plan) != 2 || plan[0].ZombieType != game.Wild || plan[1].ZombieType != game.Slow {
			t.Fatalf("plan = %+v", plan)
		}
	})
}

func TestForcedCrashDebitsOnly(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, forced(2.0))
	e.Start()

	if _, err := e.PlaceBet(0, dec("10")); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	crash := runUntil(t, e, clk, rec, EventCrash, 20*time.Second)

	if crash.Multiplier != 2.0 {
		t.Errorf("crash multiplier = %v, want 2", crash.Multiplier)
	}
	if !crash.Bet.Equal(dec("10")) || !crash.Payout.IsZero() {
		t.Errorf("crash bet=%v payout=%v", crash.Bet, crash.Payout)
	}
	if !e.Balance().Equal(dec("990")) {
		t.Errorf("balance = %v, want 990", e.Balance())
	}
	h, _ := e.History(0)
	if len(h) != 1 || h[0].Result != state.ResultCrash || h[0].Multiplier != 2.0 {
		t.Errorf("history = %+v", h)
	}
}

func TestDoubleBetRejected(t *testing.T) {
	e, _, rec := newTestEngine(t, &game.ScriptedSource{}, forced(3.0))
	e.Start()

	if _, err := e.PlaceBet(0, dec("10")); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if _, err := e.PlaceBet(0, dec("10")); !errors.Is(err, state.ErrBetAlreadyPlaced) {
		t.Fatalf("second bet: err = %v", err)
	}
	if !e.Balance().Equal(dec("990")) {
		t.Errorf("balance = %v, want 990", e.Balance())
	}
	if n := len(rec.ofType(EventBetPlaced)); n != 1 {
		t.Errorf("bet_placed events = %d", n)
	}
}

func TestBetUsesDefaultAmount(t *testing.T) {
	e, _, _ := newTestEngine(t, &game.ScriptedSource{}, forced(3.0))
	e.Start()

	if err := e.SetBetAmount(dec("0")); !errors.Is(err, state.ErrInvalidAmount) {
		t.Errorf("SetBetAmount(0): err = %v", err)
	}
	if err := e.SetBetAmount(dec("25")); err != nil {
		t.Fatalf("SetBetAmount: %v", err)
	}
	s, err := e.PlaceBet(0, decimal.Zero)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if !s.Bet.Equal(dec("25")) || !s.Balance.Equal(dec("975")) {
		t.Errorf("settlement = %+v", s)
	}
}

func TestBettingClosesWithoutTick(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, forced(3.0))
	e.Start()

	// No Tick between spawn and bet: the lane is recomputed on demand.
	clk.Advance(3600 * time.Millisecond)
	_, err := e.PlaceBet(0, dec("10"))
	if !errors.Is(err, state.ErrBettingClosed) {
		t.Fatalf("err = %v, want ErrBettingClosed", err)
	}
	if len(rec.ofType(EventPhaseChange)) == 0 {
		t.Error("activation was not reported")
	}
	if !e.Balance().Equal(dec("1000")) {
		t.Errorf("balance = %v", e.Balance())
	}
}

func TestCashOutOnce(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, forced(3.0))
	e.Start()
	e.PlaceBet(0, dec("10"))

	// Safe lane doubles five seconds after the safe zone.
	clk.Advance(3500*time.Millisecond + 5*time.Second)
	s, err := e.CashOut(0)
	if err != nil {
		t.Fatalf("CashOut: %v", err)
	}
	if !s.Payout.Equal(dec("20")) || !s.Profit.Equal(dec("10")) {
		t.Errorf("payout=%v profit=%v", s.Payout, s.Profit)
	}
	if _, err := e.CashOut(0); !errors.Is(err, state.ErrNoActiveBet) {
		t.Errorf("second CashOut: err = %v", err)
	}
	if !e.Balance().Equal(dec("1010")) {
		t.Errorf("balance = %v, want 1010", e.Balance())
	}

	// The round still crashes later without moving the balance.
	crash := runUntil(t, e, clk, rec, EventCrash, 5*time.Second)
	if !crash.Bet.IsZero() {
		t.Errorf("crash carried bet %v", crash.Bet)
	}
	if !e.Balance().Equal(dec("1010")) {
		t.Errorf("balance after crash = %v", e.Balance())
	}
}

func TestJackpotPaysCap(t *testing.T) {
	// Forced values above the cap collapse onto it.
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, forced(100))
	e.Start()
	e.PlaceBet(0, dec("10"))

	jp := runUntil(t, e, clk, rec, EventJackpot, 20*time.Second)
	if jp.Multiplier != 4.0 || !jp.Payout.Equal(dec("40")) {
		t.Errorf("jackpot = %+v", jp)
	}
	if !e.Balance().Equal(dec("1030")) {
		t.Errorf("balance = %v, want 1030", e.Balance())
	}
	if len(rec.ofType(EventCrash)) != 0 {
		t.Error("jackpot round also reported a crash")
	}
}

func TestRespawnAfterDelay(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, forced(1.0))
	e.Start()

	clk.Advance(3500 * time.Millisecond)
	e.Tick()
	if len(rec.ofType(EventCrash)) != 1 {
		t.Fatal("lane did not crash at activation")
	}
	if e.scheduler.size() != 1 || !e.respawnScheduled {
		t.Fatalf("respawn not scheduled: len=%d", e.scheduler.size())
	}

	clk.Advance(400 * time.Millisecond)
	e.Tick()
	e.Tick()
	if e.scheduler.size() != 1 {
		t.Errorf("respawn scheduled %d times", e.scheduler.size())
	}
	if n := len(rec.ofType(EventSpawn)); n != 1 {
		t.Fatalf("spawned early: %d spawns", n)
	}

	clk.Advance(100 * time.Millisecond)
	e.Tick()
	spawns := rec.ofType(EventSpawn)
	if len(spawns) != 2 || spawns[1].RoundID != "round-2" {
		t.Fatalf("spawns = %+v", spawns)
	}
	if idle := rec.ofType(EventPhaseChange); idle[len(idle)-1].Phase != state.PhaseIdle {
		t.Errorf("crashed lane was not reset before respawn")
	}
}

func TestStopRefundsAndResets(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, forced(3.0))
	if err := e.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop while idle: err = %v", err)
	}
	e.Start()
	e.PlaceBet(0, dec("10"))
	clk.Advance(4 * time.Second)
	e.Tick()

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	refunds := rec.ofType(EventRefund)
	if len(refunds) != 1 || !refunds[0].Payout.Equal(dec("10")) {
		t.Fatalf("refunds = %+v", refunds)
	}
	if !e.Balance().Equal(dec("1000")) {
		t.Errorf("balance = %v, want 1000", e.Balance())
	}
	if e.scheduler.size() != 0 {
		t.Error("deferred actions survived Stop")
	}
	for _, l := range e.Snapshot().Lanes {
		if l.Phase != state.PhaseIdle || !l.Bet.IsZero() {
			t.Errorf("lane %d = %+v", l.ID, l)
		}
	}

	// Ticks after stop do nothing.
	clk.Advance(time.Minute)
	e.Tick()
	if len(rec.ofType(EventSpawn)) != 1 {
		t.Error("spawned after Stop")
	}
}

func TestSwitchMode(t *testing.T) {
	e, _, _ := newTestEngine(t, &game.ScriptedSource{}, nil)
	e.Start()
	if err := e.SwitchMode(game.ModeSingle); !errors.Is(err, ErrGameRunning) {
		t.Fatalf("switch while running: err = %v", err)
	}
	e.Stop()

	if err := e.SwitchMode(game.ModeDouble); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if err := e.SwitchMode("quad"); err == nil {
		t.Error("accepted unknown mode")
	}
	snap := e.Snapshot()
	if snap.Mode != game.ModeDouble || len(snap.Lanes) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, err := e.PlaceBet(2, dec("1")); !errors.Is(err, ErrUnknownLane) {
		t.Errorf("bet on lane outside mode: err = %v", err)
	}
}

func TestApplyConfig(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{Draws: []float64{0.5}}, func(o *Options) { o.Mode = game.ModeSingle })
	before := e.Settings()

	bad := game.DefaultUpdate()
	bad.Lanes[game.Slow].MaxMultiplier = 0.5
	_, err := e.ApplyConfig(bad)
	var cfgErr *game.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
	if e.Settings() != before {
		t.Error("rejected config replaced settings")
	}

	e.Start()
	good := game.DefaultUpdate()
	good.Lanes[game.Slow].MaxMultiplier = 8
	good.Lanes[game.Medium].MaxMultiplier = 8
	good.Lanes[game.Wild].MaxMultiplier = 8
	if _, err := e.ApplyConfig(good); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if got := e.Snapshot().Lanes[0].MaxMultiplier; got != 4 {
		t.Errorf("running lane switched config mid-round: max=%v", got)
	}

	// Draw 0.5 crashes at 1.9; the next spawn picks up the new table.
	runUntil(t, e, clk, rec, EventCrash, 10*time.Second)
	clk.Advance(time.Second)
	e.Tick()
	if got := e.Snapshot().Lanes[0].MaxMultiplier; got != 8 {
		t.Errorf("respawned lane max = %v, want 8", got)
	}
}

func TestAct(t *testing.T) {
	e, clk, _ := newTestEngine(t, &game.ScriptedSource{}, forced(3.0))
	e.Start()

	action, _, err := e.Act(0)
	if err != nil || action != EventBetPlaced {
		t.Fatalf("first Act = %s, %v", action, err)
	}
	if _, _, err := e.Act(0); !errors.Is(err, ErrNothingToDo) {
		t.Errorf("Act with bet in safe zone: err = %v", err)
	}

	clk.Advance(5 * time.Second)
	action, s, err := e.Act(0)
	if err != nil || action != EventCashOut || !s.Payout.IsPositive() {
		t.Fatalf("second Act = %s, %+v, %v", action, s, err)
	}
}

func TestListenerMayCallBack(t *testing.T) {
	e, _, _ := newTestEngine(t, &game.ScriptedSource{}, nil)
	seen := make(chan Snapshot, 16)
	e.Subscribe(ListenerFunc(func(ev Event) {
		if ev.Type == EventGameStarted {
			seen <- e.Snapshot()
		}
	}))

	done := make(chan struct{})
	go func() {
		e.Start()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start deadlocked with a re-entrant listener")
	}
	if snap := <-seen; !snap.Running {
		t.Error("listener saw a stopped engine")
	}
}

func TestUnsubscribe(t *testing.T) {
	e, _, _ := newTestEngine(t, &game.ScriptedSource{}, nil)
	rec := &recorder{}
	cancel := e.Subscribe(rec)
	cancel()
	e.Start()
	if len(rec.ofType(EventGameStarted)) != 0 {
		t.Error("unsubscribed listener still notified")
	}
}

func TestClearHistory(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, forced(1.0))
	e.Start()
	runUntil(t, e, clk, rec, EventCrash, 5*time.Second)
	if h, _ := e.History(0); len(h) != 1 {
		t.Fatalf("history len = %d", len(h))
	}
	e.ClearHistory()
	if h, _ := e.History(0); len(h) != 0 {
		t.Errorf("history not cleared: %+v", h)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e, _, _ := newTestEngine(t, &game.ScriptedSource{}, func(o *Options) { o.TickInterval = time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSchedulerOrder(t *testing.T) {
	var s Scheduler
	now := time.Unix(0, 0)
	var order []string
	s.After(now, 20*time.Millisecond, func(time.Time) { order = append(order, "b") })
	s.After(now, 10*time.Millisecond, func(time.Time) { order = append(order, "a") })
	s.After(now, 20*time.Millisecond, func(time.Time) { order = append(order, "c") })

	if n := s.RunDue(now.Add(15 * time.Millisecond)); n != 1 {
		t.Fatalf("ran %d, want 1", n)
	}
	s.RunDue(now.Add(time.Second))
	if fmt.Sprint(order) != "[a b c]" {
		t.Errorf("order = %v", order)
	}
	s.After(now, 0, func(time.Time) {})
	s.Clear()
	if s.size() != 0 {
		t.Error("Clear left actions")
	}
}

func TestNewDerivesSpeedConstants(t *testing.T) {
	e, clk, rec := newTestEngine(t, &game.ScriptedSource{}, func(o *Options) {
		forced(3.0)(o)
		for i := range o.Settings.Lanes {
			o.Settings.Lanes[i].SpeedConstant = 0
		}
	})

	want := game.DefaultSettings()
	for i, lane := range e.Settings().Lanes {
		if lane.SpeedConstant != want.Lanes[i].SpeedConstant {
			t.Errorf("lane %d k = %v, want %v", i, lane.SpeedConstant, want.Lanes[i].SpeedConstant)
		}
	}

	e.Start()
	if got := runUntil(t, e, clk, rec, EventCrash, 15*time.Second); got.Multiplier != 3.0 {
		t.Errorf("crash multiplier = %v, want 3", got.Multiplier)
	}
}

func TestListenersSeeEngineOrder(t *testing.T) {
	e, _, _ := newTestEngine(t, &game.ScriptedSource{}, forced(3.0))
	if err := e.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var mu sync.Mutex
	var order []EventType
	held := make(chan struct{})
	release := make(chan struct{})
	e.Subscribe(ListenerFunc(func(ev Event) {
		if ev.Type == EventBetPlaced {
			close(held)
			<-release
		}
		mu.Lock()
		order = append(order, ev.Type)
		mu.Unlock()
	}))

	betErr := make(chan error, 1)
	go func() {
		_, err := e.PlaceBet(0, dec("10"))
		betErr <- err
	}()
	<-held

	// bet_placed is still being delivered; Stop must queue behind it.
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	close(release)
	if err := <-betErr; err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []EventType{EventBetPlaced, EventRefund, EventPhaseChange, EventGameStopped}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestApplyLaneFileConcurrent(t *testing.T) {
	e, _, _ := newTestEngine(t, &game.ScriptedSource{}, nil)
	safeMax, wildRTP := 6.0, 97.0
	files := []*config.LaneFile{
		{Lanes: map[string]config.LaneEntry{"safe": {MaxMultiplier: &safeMax}}},
		{Lanes: map[string]config.LaneEntry{"wild": {RTP: &wildRTP}}},
	}

	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ApplyLaneFile(f); err != nil {
				t.Errorf("ApplyLaneFile: %v", err)
			}
		}()
	}
	wg.Wait()

	s := e.Settings()
	if got := s.Lane(game.Slow).MaxMultiplier; got != safeMax {
		t.Errorf("safe max = %v, want %v", got, safeMax)
	}
	if got := s.Lane(game.Wild).RTP(); math.Abs(got-wildRTP) > 1e-9 {
		t.Errorf("wild rtp = %v, want %v", got, wildRTP)
	}

	both := 1.0
	bad := &config.LaneFile{Lanes: map[string]config.LaneEntry{"medium": {HouseEdge: &both, RTP: &wildRTP}}}
	if _, err := e.ApplyLaneFile(bad); err == nil {
		t.Error("houseEdge with rtp accepted")
	}
	if e.Settings() != s {
		t.Error("rejected lane file changed settings")
	}
}
