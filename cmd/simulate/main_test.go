package main

import (
	"context"
	"reflect"
	"testing"
	"time"

	"zombieRushServer/game"
)

func TestRunIsReproducible(t *testing.T) {
	settings := game.DefaultSettings()

	a, err := run(context.Background(), settings, "fixed", 2000, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := run(context.Background(), settings, "fixed", 2000, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different reports")
	}

	if len(a.Lanes) != game.NumZombieTypes {
		t.Fatalf("lanes = %d", len(a.Lanes))
	}
	for i, lr := range a.Lanes {
		if lr.Lane != game.ZombieType(i).ConfigKey() {
			t.Errorf("lane %d key = %s", i, lr.Lane)
		}
		for _, c := range lr.CashOuts {
			if c.Target > lr.Config.MaxMultiplier {
				t.Errorf("%s: cash-out target %.1f above cap", lr.Lane, c.Target)
			}
		}
		if d := lr.TimeToMax - settings.TargetDuration; d < -time.Millisecond || d > time.Millisecond {
			t.Errorf("%s: time to max = %s, want %s", lr.Lane, lr.TimeToMax, settings.TargetDuration)
		}
	}
}

func TestRunQuick(t *testing.T) {
	rep, err := run(context.Background(), game.DefaultSettings(), "quick", 1000, true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, lr := range rep.Lanes {
		if lr.Distribution.Rounds != 1000 || lr.CashOuts != nil || lr.Growth != nil {
			t.Errorf("%s: quick report = %+v", lr.Lane, lr)
		}
	}
	if rep.Issues != nil {
		t.Errorf("quick run reported issues: %+v", rep.Issues)
	}
}
