package game

import (
	"math"
	"time"
)

// MultiplierAt returns e^(k*t) for t seconds of active time.
func MultiplierAt(elapsed time.Duration, k float64) float64 {
	if elapsed <= 0 {
		return 1.0
	}
	return math.Exp(k * elapsed.Seconds())
}

// TimeToReach is the inverse of MultiplierAt.
func TimeToReach(target, k float64) time.Duration {
	if target <= 1 || k <= 0 {
		return 0
	}
	seconds := math.Log(target) / k
	return time.Duration(seconds * float64(time.Second))
}

// SpeedConstant returns the growth constant that takes the multiplier from 1
// to max in exactly target.
func SpeedConstant(max float64, target time.Duration) float64 {
	return math.Log(max) / target.Seconds()
}
