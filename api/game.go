package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"zombieRushServer/config"
	"zombieRushServer/game"
	"zombieRushServer/state"

	"github.com/shopspring/decimal"
)

/* =========================
   REQUEST TYPES
========================= */

// ModeRequest switches the lane layout.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// AmountRequest carries a stake. The amount may be a JSON string or number.
type AmountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

/* =========================
   GAME CONTROL ENDPOINTS
========================= */

// GET /api/game
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.deps.Game.Snapshot())
}

// POST /api/game/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Game.Start(); err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, s.deps.Game.Snapshot())
}

// POST /api/game/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Game.Stop(); err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, s.deps.Game.Snapshot())
}

// POST /api/game/mode
func (s *Server) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	mode, err := game.ParseMode(strings.TrimSpace(req.Mode))
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Game.SwitchMode(mode); err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"mode": mode})
}

// PUT /api/game/bet-amount
func (s *Server) handleSetBetAmount(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount == nil {
		sendError(w, http.StatusBadRequest, "Amount is required")
		return
	}
	if err := s.deps.Game.SetBetAmount(*req.Amount); err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"amount": *req.Amount})
}

// GET /api/game/config
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, s.deps.Game.Settings())
}

// PUT /api/game/config
//
// The body is a partial lane document laid over the current settings. It
// takes effect from the next spawn.
func (s *Server) handleApplyConfig(w http.ResponseWriter, r *http.Request) {
	var file config.LaneFile
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		sendError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := file.Validate(); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := s.deps.Game.ApplyLaneFile(&file)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, settings)
}

// DELETE /api/history
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.deps.Game.ClearHistory()
	sendJSON(w, http.StatusOK, nil)
}

func decodeAmount(r *http.Request) (decimal.Decimal, error) {
	var req AmountRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", state.ErrInvalidAmount, err)
	}
	if req.Amount == nil {
		return decimal.Zero, nil
	}
	if !req.Amount.IsPositive() {
		return decimal.Zero, state.ErrInvalidAmount
	}
	return *req.Amount, nil
}
