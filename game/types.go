package game

import "fmt"

// ZombieType selects the lane configuration a spawned zombie runs under.
type ZombieType uint8

const (
	Slow ZombieType = iota
	Medium
	Wild
)

// NumZombieTypes is also the number of lane slots.
const NumZombieTypes = 3

var zombieTypeNames = [NumZombieTypes]string{"slow", "medium", "wild"}

// Lane configurations are keyed by risk level rather than by zombie name.
var laneConfigKeys = [NumZombieTypes]string{"safe", "medium", "wild"}

func (z ZombieType) Valid() bool {
	return z < NumZombieTypes
}

func (z ZombieType) String() string {
	if !z.Valid() {
		return fmt.Sprintf("ZombieType(%d)", uint8(z))
	}
	return zombieTypeNames[z]
}

// ConfigKey returns the lane configuration key bound to this type.
func (z ZombieType) ConfigKey() string {
	if !z.Valid() {
		return ""
	}
	return laneConfigKeys[z]
}

func (z ZombieType) MarshalText() ([]byte, error) {
	if !z.Valid() {
		return nil, fmt.Errorf("invalid zombie type %d", uint8(z))
	}
	return []byte(z.String()), nil
}

// ZombieTypeForKey resolves a lane configuration key ("safe", "medium", "wild").
func ZombieTypeForKey(key string) (ZombieType, error) {
	for i, k := range laneConfigKeys {
		if k == key {
			return ZombieType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown lane config key %q", key)
}

// Mode controls how many lanes run and how zombie types are assigned.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeDouble Mode = "double"
	ModeTriple Mode = "triple"
)

// LaneCount returns the number of lane slots in play, or 0 for an unknown mode.
func (m Mode) LaneCount() int {
	switch m {
	case ModeSingle:
		return 1
	case ModeDouble:
		return 2
	case ModeTriple:
		return 3
	}
	return 0
}

// Fixed reports whether lane slot i always hosts ZombieType(i).
func (m Mode) Fixed() bool {
	return m == ModeTriple
}

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if m.LaneCount() == 0 {
		return "", fmt.Errorf("unknown game mode %q", s)
	}
	return m, nil
}
