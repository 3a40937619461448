package db

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"zombieRushServer/config"
	"zombieRushServer/engine"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	settlementsTable = "lane_settlements"
	totalsTable      = "zombie_type_totals"
)

// SettlementRecord is one closed bet.
type SettlementRecord struct {
	ID         int64           `json:"id"`
	RoundID    string          `json:"roundId"`
	Lane       int             `json:"lane"`
	ZombieType string          `json:"zombieType"`
	Result     string          `json:"result"`
	Bet        decimal.Decimal `json:"bet"`
	Multiplier float64         `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
	Balance    decimal.Decimal `json:"balance"`
	SettledAt  time.Time       `json:"settledAt"`
}

// TypeTotals aggregates settled bets for one zombie type.
type TypeTotals struct {
	ZombieType  string          `json:"zombieType"`
	Settlements int64           `json:"settlements"`
	Wagered     decimal.Decimal `json:"wagered"`
	Returned    decimal.Decimal `json:"returned"`
}

// RTP is returned/wagered in percent.
func (t TypeTotals) RTP() float64 {
	if !t.Wagered.IsPositive() {
		return 0
	}
	return t.Returned.Div(t.Wagered).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

var eventResults = map[engine.EventType]string{
	engine.EventCashOut: "win",
	engine.EventJackpot: "jackpot",
	engine.EventCrash:   "crash",
	engine.EventRefund:  "refund",
}

// RecordFromEvent converts a settling engine event. It reports false for
// events that close no bet.
func RecordFromEvent(ev engine.Event) (SettlementRecord, bool) {
	if !ev.Settles() {
		return SettlementRecord{}, false
	}
	return SettlementRecord{
		RoundID:    ev.RoundID,
		Lane:       ev.Lane,
		ZombieType: ev.ZombieType,
		Result:     eventResults[ev.Type],
		Bet:        ev.Bet,
		Multiplier: ev.Multiplier,
		Payout:     ev.Payout,
		Balance:    ev.Balance,
		SettledAt:  ev.Time,
	}, true
}

// Journal is an append-only audit trail of settlements in PostgreSQL.
// Gameplay never reads it back.
type Journal struct {
	pool   *pgxpool.Pool
	txm    *manager.Manager
	getter *trmpgx.CtxGetter
	sb     sq.StatementBuilderType

	wg sync.WaitGroup
}

func NewJournal(pool *pgxpool.Pool) (*Journal, error) {
	txm, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction manager: %w", err)
	}
	return &Journal{
		pool:   pool,
		txm:    txm,
		getter: trmpgx.DefaultCtxGetter,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// OnEvent stores settling events off the engine path.
func (j *Journal) OnEvent(ev engine.Event) {
	rec, ok := RecordFromEvent(ev)
	if !ok {
		return
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), config.JournalWriteTimeout)
		defer cancel()

		if err := j.Record(ctx, rec); err != nil {
			log.Printf("⚠️  Failed to journal %s on lane %d: %v", rec.Result, rec.Lane, err)
		}
	}()
}

// Wait blocks until every pending OnEvent write has finished.
func (j *Journal) Wait() {
	j.wg.Wait()
}

// Record inserts rec and folds it into the per-type totals in one
// transaction. Refunds are journaled but do not count as wagered.
func (j *Journal) Record(ctx context.Context, rec SettlementRecord) error {
	return j.txm.Do(ctx, func(ctx context.Context) error {
		conn := j.getter.DefaultTrOrDB(ctx, j.pool)

		query, args, err := j.insertSettlement(rec)
		if err != nil {
			return fmt.Errorf("failed to build settlement insert: %w", err)
		}
		if _, err := conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}

		if rec.Result == "refund" {
			return nil
		}
		query, args, err = j.upsertTotals(rec)
		if err != nil {
			return fmt.Errorf("failed to build totals upsert: %w", err)
		}
		if _, err := conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update totals: %w", err)
		}
		return nil
	})
}

func (j *Journal) insertSettlement(rec SettlementRecord) (string, []interface{}, error) {
	return j.sb.Insert(settlementsTable).
		Columns("round_id", "lane", "zombie_type", "result", "bet", "multiplier", "payout", "balance", "settled_at").
		Values(rec.RoundID, rec.Lane, rec.ZombieType, rec.Result,
			rec.Bet.InexactFloat64(), rec.Multiplier, rec.Payout.InexactFloat64(), rec.Balance.InexactFloat64(), rec.SettledAt).
		ToSql()
}

func (j *Journal) upsertTotals(rec SettlementRecord) (string, []interface{}, error) {
	return j.sb.Insert(totalsTable).
		Columns("zombie_type", "settlements", "wagered", "returned").
		Values(rec.ZombieType, 1, rec.Bet.InexactFloat64(), rec.Payout.InexactFloat64()).
		Suffix("ON CONFLICT (zombie_type) DO UPDATE SET " +
			"settlements = " + totalsTable + ".settlements + 1, " +
			"wagered = " + totalsTable + ".wagered + EXCLUDED.wagered, " +
			"returned = " + totalsTable + ".returned + EXCLUDED.returned").
		ToSql()
}

// Recent returns the latest settlements, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]SettlementRecord, error) {
	if limit <= 0 {
		limit = config.JournalRecentLimit
	}
	query, args, err := j.sb.Select("id", "round_id", "lane", "zombie_type", "result", "bet", "multiplier", "payout", "balance", "settled_at").
		From(settlementsTable).
		OrderBy("settled_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build recent query: %w", err)
	}

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var records []SettlementRecord
	for rows.Next() {
		var (
			rec                  SettlementRecord
			bet, payout, balance float64
		)
		if err := rows.Scan(&rec.ID, &rec.RoundID, &rec.Lane, &rec.ZombieType, &rec.Result,
			&bet, &rec.Multiplier, &payout, &balance, &rec.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		rec.Bet = decimal.NewFromFloat(bet)
		rec.Payout = decimal.NewFromFloat(payout)
		rec.Balance = decimal.NewFromFloat(balance)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Totals returns the per-type aggregates.
func (j *Journal) Totals(ctx context.Context) ([]TypeTotals, error) {
	query, args, err := j.sb.Select("zombie_type", "settlements", "wagered", "returned").
		From(totalsTable).
		OrderBy("zombie_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build totals query: %w", err)
	}

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	var totals []TypeTotals
	for rows.Next() {
		var (
			t                 TypeTotals
			wagered, returned float64
		)
		if err := rows.Scan(&t.ZombieType, &t.Settlements, &wagered, &returned); err != nil {
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
		t.Wagered = decimal.NewFromFloat(wagered)
		t.Returned = decimal.NewFromFloat(returned)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (j *Journal) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}
