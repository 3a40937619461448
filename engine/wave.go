package engine

import (
	"zombieRushServer/game"
	"zombieRushServer/state"
)

// Spawn is one planned zombie.
type Spawn struct {
	Lane       int
	ZombieType game.ZombieType
}

// WaveScheduler picks which lanes join the next wave.
type WaveScheduler struct {
	src         game.RandomSource
	spawnChance float64
}

func NewWaveScheduler(src game.RandomSource, spawnChance float64) *WaveScheduler {
	return &WaveScheduler{src: src, spawnChance: spawnChance}
}

// Plan returns the spawns for mode, ordered by lane.
//
// Fixed mode: each lane joins with probability spawnChance and keeps its own
// type; when nobody is drawn one lane is forced so a wave is never empty.
// Dynamic modes: every lane spawns with a uniformly drawn type.
func (w *WaveScheduler) Plan(mode game.Mode) []Spawn {
	n := mode.LaneCount()
	spawns := make([]Spawn, 0, n)

	if !mode.Fixed() {
		for i := 0; i < n; i++ {
			spawns = append(spawns, Spawn{Lane: i, ZombieType: game.ZombieType(w.src.IntN(game.NumZombieTypes))})
		}
		return spawns
	}

	for i := 0; i < n; i++ {
		if w.src.Float64() <= w.spawnChance {
			spawns = append(spawns, Spawn{Lane: i, ZombieType: game.ZombieType(i)})
		}
	}
	if len(spawns) == 0 && n > 0 {
		forced := w.src.IntN(n)
		spawns = append(spawns, Spawn{Lane: forced, ZombieType: game.ZombieType(forced)})
	}
	return spawns
}

// WaveFinished reports whether every lane is Crashed or Idle.
func WaveFinished(lanes []*state.Lane) bool {
	for _, l := range lanes {
		if l.Phase == state.PhaseSafeZone || l.Phase == state.PhaseActive {
			return false
		}
	}
	return true
}
