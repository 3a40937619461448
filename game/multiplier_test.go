package game

import (
	"math"
	"testing"
	"time"
)

func TestSpeedConstant(t *testing.T) {
	k := SpeedConstant(10, 10*time.Second)
	if math.Abs(k-0.2303) > 1e-4 {
		t.Errorf("SpeedConstant(10, 10s) = %v, want ~0.2303", k)
	}
	if got := MultiplierAt(10*time.Second, k); math.Abs(got-10) > 1e-6 {
		t.Errorf("MultiplierAt(10s) = %v, want 10", got)
	}
}

func TestMultiplierMonotonic(t *testing.T) {
	k := SpeedConstant(50, 10*time.Second)
	prev := MultiplierAt(0, k)
	if prev != 1.0 {
		t.Fatalf("MultiplierAt(0) = %v, want 1", prev)
	}
	for d := 50 * time.Millisecond; d <= 12*time.Second; d += 50 * time.Millisecond {
		m := MultiplierAt(d, k)
		if m < prev {
			t.Fatalf("multiplier decreased at %v: %v < %v", d, m, prev)
		}
		prev = m
	}
}

func TestTimeToReachInverse(t *testing.T) {
	for _, max := range []float64{4, 10, 50} {
		k := SpeedConstant(max, 10*time.Second)
		d := TimeToReach(max, k)
		if diff := d - 10*time.Second; diff > time.Microsecond || diff < -time.Microsecond {
			t.Errorf("TimeToReach(%v) = %v, want 10s", max, d)
		}
		if got := MultiplierAt(d, k); math.Abs(got-max) > 1e-6 {
			t.Errorf("MultiplierAt(TimeToReach(%v)) = %v", max, got)
		}
	}

	if got := TimeToReach(1, 0.5); got != 0 {
		t.Errorf("TimeToReach(1) = %v, want 0", got)
	}
}

func TestGrowthTable(t *testing.T) {
	k := SpeedConstant(4, 10*time.Second)
	table := GrowthTable(k, []time.Duration{0, 5 * time.Second, 10 * time.Second})
	if len(table) != 3 {
		t.Fatalf("len = %d, want 3", len(table))
	}
	if math.Abs(table[1].Multiplier-2) > 1e-9 {
		t.Errorf("safe lane at 5s = %v, want 2", table[1].Multiplier)
	}
	if math.Abs(table[2].Multiplier-4) > 1e-9 {
		t.Errorf("safe lane at 10s = %v, want 4", table[2].Multiplier)
	}
}
