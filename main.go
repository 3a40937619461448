package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"zombieRushServer/api"
	"zombieRushServer/config"
	"zombieRushServer/crypto"
	"zombieRushServer/db"
	"zombieRushServer/engine"
	"zombieRushServer/game"
	"zombieRushServer/ws"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}

	deps := api.Deps{Game: eng}

	// Optional backends. The game runs without either.
	if cfg.DatabaseURL != "" {
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("⚠️  Warning: PostgreSQL initialization failed: %v", err)
			log.Println("   Settlement journal will be disabled")
		} else {
			defer pool.Close()
			journal, err := db.NewJournal(pool)
			if err != nil {
				return err
			}
			defer journal.Wait()
			eng.Subscribe(journal)
			deps.Journal = journal
		}
	}

	var live *db.LiveBets
	if cfg.RedisURL != "" {
		client, err := db.OpenRedis(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("⚠️  Warning: Redis initialization failed: %v", err)
			log.Println("   Live bet mirror will be disabled")
		} else {
			defer client.Close()
			live = db.NewLiveBets(client)
			eng.Subscribe(live)
			deps.Live = live
		}
	}

	hub := ws.NewHub(eng)
	eng.Subscribe(hub)
	deps.WS = hub.HandleWS
	deps.ClientCount = hub.ClientCount

	eng.Subscribe(engine.ListenerFunc(func(ev engine.Event) {
		if ev.Type == engine.EventJackpot {
			log.Printf("🎰 Jackpot on lane %d: %.0fx (round %s)", ev.Lane, ev.Multiplier, ev.RoundID)
		}
	}))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewRouter(deps),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return hub.Run(ctx) })
	if live != nil {
		g.Go(func() error { return live.Run(ctx) })
	}
	g.Go(func() error {
		log.Printf("🚀 Server starting on %s", cfg.Addr)
		logEndpoints()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("🛑 Shutting down...")
		if eng.Running() {
			if err := eng.Stop(); err != nil {
				log.Printf("⚠️  Failed to stop game: %v", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.AutoStart {
		if err := eng.Start(); err != nil {
			log.Printf("⚠️  Auto start failed: %v", err)
		}
	}

	return g.Wait()
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	settings, err := game.LoadSettings(cfg.LanesFile)
	if err != nil {
		return nil, err
	}
	mode, err := game.ParseMode(cfg.GameMode)
	if err != nil {
		return nil, err
	}
	initial, err := decimal.NewFromString(cfg.InitialBalance)
	if err != nil {
		return nil, err
	}
	bet, err := decimal.NewFromString(cfg.DefaultBet)
	if err != nil {
		return nil, err
	}

	seed := cfg.ServerSeed
	if seed == "" {
		if seed, _, err = crypto.NewServerSeed(); err != nil {
			return nil, err
		}
	}
	log.Printf("🎲 Server seed hash: %s", crypto.HashSeed(seed))

	opts := engine.DefaultOptions()
	opts.Settings = settings
	opts.Mode = mode
	opts.InitialBalance = initial
	opts.DefaultBet = bet
	opts.Source = game.NewSeededRNG(seed)
	opts.DebugCrashLog = cfg.DebugCrashLog

	for i, lane := range settings.Lanes {
		log.Printf("📋 %s lane: max %.0fx, edge %.2f%%, k=%.4f",
			game.ZombieType(i).ConfigKey(), lane.MaxMultiplier, lane.HouseEdge*100, lane.SpeedConstant)
	}
	return engine.New(opts)
}

func logEndpoints() {
	log.Println("")
	log.Println("📡 WebSocket Endpoint:")
	log.Println("   /ws - subscribe to 'lanes' for every game event")
	log.Println("")
	log.Println("🔌 API Endpoints:")
	log.Println("   GET    /api/health")
	log.Println("   GET    /api/game")
	log.Println("   POST   /api/game/start | /api/game/stop | /api/game/mode")
	log.Println("   GET    /api/game/config")
	log.Println("   PUT    /api/game/bet-amount | /api/game/config")
	log.Println("   POST   /api/lanes/{lane}/bet | cashout | act")
	log.Println("   GET    /api/lanes/{lane}/history")
	log.Println("   DELETE /api/history")
	log.Println("   GET    /api/journal | /api/journal/totals | /api/live")
}
