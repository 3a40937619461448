package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"zombieRushServer/config"
	"zombieRushServer/engine"
	"zombieRushServer/game"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// OpenRedis connects and pings a Redis client. addr is host:port or a
// redis:// URL, which then overrides password and db.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	log.Println("🔌 Connecting to Redis...")

	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		opts = parsed
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 5
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("✅ Redis connected successfully (%s, DB %d)", opts.Addr, opts.DB)
	return client, nil
}

// LiveBet is an open bet mirrored into a Redis hash.
type LiveBet struct {
	Lane       int             `json:"lane"`
	RoundID    string          `json:"roundId"`
	ZombieType string          `json:"zombieType"`
	Bet        decimal.Decimal `json:"bet"`
	PlacedAt   time.Time       `json:"placedAt"`
}

// LiveBets mirrors open bets and the account balance into Redis for
// dashboards. Writes are applied in event order by Run.
type LiveBets struct {
	client *redis.Client
	events chan engine.Event
}

func NewLiveBets(client *redis.Client) *LiveBets {
	return &LiveBets{
		client: client,
		events: make(chan engine.Event, config.LiveBetQueueSize),
	}
}

// OnEvent queues ev without blocking the engine.
func (l *LiveBets) OnEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventBetPlaced, engine.EventCashOut, engine.EventCrash,
		engine.EventJackpot, engine.EventRefund, engine.EventGameStopped:
	default:
		return
	}
	select {
	case l.events <- ev:
	default:
		log.Printf("⚠️  Live bet mirror buffer full, dropping %s", ev.Type)
	}
}

// Run applies queued events until ctx is done.
func (l *LiveBets) Run(ctx context.Context) error {
	log.Println("📡 Live bet mirror started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-l.events:
			wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := l.apply(wctx, ev); err != nil {
				log.Printf("⚠️  Failed to mirror %s to Redis: %v", ev.Type, err)
			}
			cancel()
		}
	}
}

func (l *LiveBets) apply(ctx context.Context, ev engine.Event) error {
	switch ev.Type {
	case engine.EventBetPlaced:
		if err := l.Store(ctx, LiveBet{Lane: ev.Lane, RoundID: ev.RoundID, ZombieType: ev.ZombieType, Bet: ev.Bet, PlacedAt: ev.Time}); err != nil {
			return err
		}
	case engine.EventGameStopped:
		for lane := 0; lane < game.NumZombieTypes; lane++ {
			if err := l.Clear(ctx, lane); err != nil {
				return err
			}
		}
	default:
		if ev.Type == engine.EventCrash && !ev.Bet.IsPositive() {
			return nil
		}
		if err := l.Clear(ctx, ev.Lane); err != nil {
			return err
		}
	}
	return l.SetBalance(ctx, ev.Balance)
}

// Store writes bet under rush:lane:{lane} with a TTL.
func (l *LiveBets) Store(ctx context.Context, bet LiveBet) error {
	key := fmt.Sprintf(config.RedisLaneBetKey, bet.Lane)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"roundId":    bet.RoundID,
			"zombieType": bet.ZombieType,
			"bet":        bet.Bet.String(),
			"placedAt":   bet.PlacedAt.UnixMilli(),
		})
		pipe.Expire(ctx, key, config.LiveBetTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store live bet: %w", err)
	}
	return nil
}

func (l *LiveBets) Clear(ctx context.Context, lane int) error {
	return l.client.Del(ctx, fmt.Sprintf(config.RedisLaneBetKey, lane)).Err()
}

// Open returns every mirrored bet, ordered by lane.
func (l *LiveBets) Open(ctx context.Context) ([]LiveBet, error) {
	var bets []LiveBet
	for lane := 0; lane < game.NumZombieTypes; lane++ {
		fields, err := l.client.HGetAll(ctx, fmt.Sprintf(config.RedisLaneBetKey, lane)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read lane %d: %w", lane, err)
		}
		if len(fields) == 0 {
			continue
		}
		bet, err := decimal.NewFromString(fields["bet"])
		if err != nil {
			return nil, fmt.Errorf("failed to parse lane %d bet: %w", lane, err)
		}
		placedMs, _ := strconv.ParseInt(fields["placedAt"], 10, 64)
		bets = append(bets, LiveBet{
			Lane:       lane,
			RoundID:    fields["roundId"],
			ZombieType: fields["zombieType"],
			Bet:        bet,
			PlacedAt:   time.UnixMilli(placedMs).UTC(),
		})
	}
	return bets, nil
}

func (l *LiveBets) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	return l.client.Set(ctx, config.RedisBalanceKey, balance.String(), config.BalanceTTL).Err()
}

// Balance returns the mirrored balance, or false when none is stored.
func (l *LiveBets) Balance(ctx context.Context) (decimal.Decimal, bool, error) {
	v, err := l.client.Get(ctx, config.RedisBalanceKey).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	bal, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false, err
	}
	return bal, true, nil
}

func (l *LiveBets) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
