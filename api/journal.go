package api

import (
	"log"
	"net/http"
	"strconv"

	"zombieRushServer/config"
	"zombieRushServer/db"
)

/* =========================
   HEALTH CHECK ENDPOINT
========================= */

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	response := map[string]interface{}{
		"success": true,
		"running": s.deps.Game.Running(),
		"message": "Health check completed",
	}
	if s.deps.ClientCount != nil {
		response["wsClients"] = s.deps.ClientCount()
	}

	if s.deps.Journal != nil {
		postgresHealth := "ok"
		if err := s.deps.Journal.Ping(ctx); err != nil {
			postgresHealth = "error: " + err.Error()
		}
		response["postgres"] = postgresHealth
	}
	if s.deps.Live != nil {
		redisHealth := "ok"
		if err := s.deps.Live.Ping(ctx); err != nil {
			redisHealth = "error: " + err.Error()
		}
		response["redis"] = redisHealth
	}

	sendRaw(w, http.StatusOK, response)
}

/* =========================
   JOURNAL ENDPOINTS
========================= */

// GET /api/journal?limit=50
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		sendError(w, http.StatusServiceUnavailable, "Journal not configured")
		return
	}

	limit := config.JournalRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			sendError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	records, err := s.deps.Journal.Recent(ctx, limit)
	if err != nil {
		log.Printf("❌ Failed to read journal: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to read journal")
		return
	}
	if records == nil {
		records = []db.SettlementRecord{}
	}
	sendJSON(w, http.StatusOK, records)
}

// TotalsResponse adds the observed RTP to each row.
type TotalsResponse struct {
	db.TypeTotals
	RTP float64 `json:"rtp"`
}

// GET /api/journal/totals
func (s *Server) handleJournalTotals(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		sendError(w, http.StatusServiceUnavailable, "Journal not configured")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	totals, err := s.deps.Journal.Totals(ctx)
	if err != nil {
		log.Printf("❌ Failed to read journal totals: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to read journal totals")
		return
	}
	response := make([]TotalsResponse, 0, len(totals))
	for _, t := range totals {
		response = append(response, TotalsResponse{TypeTotals: t, RTP: t.RTP()})
	}
	sendJSON(w, http.StatusOK, response)
}

/* =========================
   LIVE BET ENDPOINT
========================= */

// GET /api/live
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.deps.Live == nil {
		sendError(w, http.StatusServiceUnavailable, "Live mirror not configured")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	bets, err := s.deps.Live.Open(ctx)
	if err != nil {
		log.Printf("❌ Failed to read live bets: %v", err)
		sendError(w, http.StatusInternalServerError, "Failed to read live bets")
		return
	}
	if bets == nil {
		bets = []db.LiveBet{}
	}
	response := map[string]interface{}{"bets": bets}

	balance, ok, err := s.deps.Live.Balance(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to read mirrored balance: %v", err)
	} else if ok {
		response["balance"] = balance
	}
	sendJSON(w, http.StatusOK, response)
}
