package game

import "math"

// MinDraw bounds the crash point at (1-h)/MinDraw before the cap.
const MinDraw = 0.0001

// CrashPoint maps a uniform draw in (0,1] to a crash multiplier.
//
// P(crash >= X) = (1-h)/X for X <= MaxMultiplier. Everything above the cap
// collapses onto MaxMultiplier, which the lane then pays as a jackpot.
// Out of range draws are clamped, never rejected.
func CrashPoint(cfg LaneConfig, draw float64) float64 {
	if math.IsNaN(draw) || draw < MinDraw {
		draw = MinDraw
	}
	if draw > 1 {
		draw = 1
	}
	raw := (1 - cfg.HouseEdge) / draw
	return math.Min(raw, cfg.MaxMultiplier)
}

// ForcedCrashPoint applies the debug override. It is capped at the lane max.
func ForcedCrashPoint(cfg LaneConfig, forced float64) float64 {
	return math.Min(forced, cfg.MaxMultiplier)
}

// JackpotProbability is the chance a round reaches the cap, (1-h)/M.
func JackpotProbability(cfg LaneConfig) float64 {
	return (1 - cfg.HouseEdge) / cfg.MaxMultiplier
}

// WinProbability is the chance the crash point is at least target.
func WinProbability(cfg LaneConfig, target float64) float64 {
	if target <= 1-cfg.HouseEdge {
		return 1
	}
	if target > cfg.MaxMultiplier {
		return 0
	}
	return (1 - cfg.HouseEdge) / target
}
