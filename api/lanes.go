package api

import (
	"fmt"
	"net/http"
	"strconv"

	"zombieRushServer/engine"
	"zombieRushServer/state"

	"github.com/go-chi/chi/v5"
)

/* =========================
   LANE ENDPOINTS
========================= */

// SettlementResponse reports a bet, cash-out or act.
type SettlementResponse struct {
	Action     engine.EventType `json:"action,omitempty"`
	Settlement state.Settlement `json:"settlement"`
}

func laneParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "lane")
	lane, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", engine.ErrUnknownLane, raw)
	}
	return lane, nil
}

// POST /api/lanes/{lane}/bet
func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	lane, err := laneParam(r)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	amount, err := decodeAmount(r)
	if err != nil {
		sendEngineError(w, err)
		return
	}

	settlement, err := s.deps.Game.PlaceBet(lane, amount)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, SettlementResponse{Action: engine.EventBetPlaced, Settlement: settlement})
}

// POST /api/lanes/{lane}/cashout
func (s *Server) handleCashOut(w http.ResponseWriter, r *http.Request) {
	lane, err := laneParam(r)
	if err != nil {
		sendEngineError(w, err)
		return
	}

	settlement, err := s.deps.Game.CashOut(lane)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, SettlementResponse{Action: engine.EventCashOut, Settlement: settlement})
}

// POST /api/lanes/{lane}/act
func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	lane, err := laneParam(r)
	if err != nil {
		sendEngineError(w, err)
		return
	}

	action, settlement, err := s.deps.Game.Act(lane)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, SettlementResponse{Action: action, Settlement: settlement})
}

// GET /api/lanes/{lane}/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	lane, err := laneParam(r)
	if err != nil {
		sendEngineError(w, err)
		return
	}

	history, err := s.deps.Game.History(lane)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	if history == nil {
		history = []state.HistoryEntry{}
	}
	sendJSON(w, http.StatusOK, history)
}
