package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"zombieRushServer/config"
	"zombieRushServer/db"
	"zombieRushServer/engine"
	"zombieRushServer/game"
	"zombieRushServer/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
)

/* =========================
   DEPENDENCIES
========================= */

// Game is the engine surface the REST handlers drive.
type Game interface {
	Start() error
	Stop() error
	SwitchMode(mode game.Mode) error
	SetBetAmount(amount decimal.Decimal) error
	ApplyLaneFile(f *config.LaneFile) (game.Settings, error)
	ClearHistory()
	PlaceBet(lane int, amount decimal.Decimal) (state.Settlement, error)
	CashOut(lane int) (state.Settlement, error)
	Act(lane int) (engine.EventType, state.Settlement, error)
	History(lane int) ([]state.HistoryEntry, error)
	Snapshot() engine.Snapshot
	Settings() game.Settings
	Running() bool
}

// JournalReader reads the settlement journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]db.SettlementRecord, error)
	Totals(ctx context.Context) ([]db.TypeTotals, error)
	Ping(ctx context.Context) error
}

// LiveReader reads the Redis open-bet mirror.
type LiveReader interface {
	Open(ctx context.Context) ([]db.LiveBet, error)
	Balance(ctx context.Context) (decimal.Decimal, bool, error)
	Ping(ctx context.Context) error
}

// Deps wires the router. Journal, Live, WS and ClientCount are optional.
type Deps struct {
	Game        Game
	Journal     JournalReader
	Live        LiveReader
	WS          http.HandlerFunc
	ClientCount func() int
}

type Server struct {
	deps Deps
}

/* =========================
   ROUTES
========================= */

// NewRouter builds the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	s := &Server{deps: deps}
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{config.AllowOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if deps.WS != nil {
		r.Get("/ws", deps.WS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/game", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Post("/mode", s.handleSwitchMode)
			r.Put("/bet-amount", s.handleSetBetAmount)
			r.Get("/config", s.handleGetConfig)
			r.Put("/config", s.handleApplyConfig)
		})

		r.Route("/lanes/{lane}", func(r chi.Router) {
			r.Post("/bet", s.handlePlaceBet)
			r.Post("/cashout", s.handleCashOut)
			r.Post("/act", s.handleAct)
			r.Get("/history", s.handleHistory)
		})
		r.Delete("/history", s.handleClearHistory)

		r.Get("/journal", s.handleJournal)
		r.Get("/journal/totals", s.handleJournalTotals)
		r.Get("/live", s.handleLive)
	})

	return r
}

/* =========================
   RESPONSES
========================= */

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Response wraps a successful result.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	sendRaw(w, status, Response{Success: true, Data: data})
}

func sendRaw(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

// sendError sends an error response
func sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// sendEngineError maps an engine or ledger error onto a status code.
func sendEngineError(w http.ResponseWriter, err error) {
	sendError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var cfgErr *game.ConfigError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, state.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnknownLane):
		return http.StatusNotFound
	case errors.Is(err, state.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, state.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}
