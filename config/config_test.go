package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ADDR", "REDIS_DB", "AUTO_START", "DEBUG_CRASH_LOG", "GAME_MODE", "INITIAL_BALANCE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.GameMode != "triple" || cfg.InitialBalance != InitialBalance {
		t.Errorf("game defaults = %q / %q", cfg.GameMode, cfg.InitialBalance)
	}
	if cfg.AutoStart || cfg.DebugCrashLog || cfg.RedisDB != 0 {
		t.Errorf("flags = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AUTO_START", "true")
	t.Setenv("GAME_MODE", "double")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.RedisDB != 3 || !cfg.AutoStart || cfg.GameMode != "double" {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("REDIS_DB", "zero")
	if _, err := Load(); err == nil {
		t.Error("expected error for bad REDIS_DB")
	}
}

func TestParseLaneFile(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		f, err := ParseLaneFile([]byte(`
targetDurationSeconds: 12
lanes:
  safe: {maxMultiplier: 5}
  medium: {rtp: 96}
`))
		if err != nil {
			t.Fatalf("ParseLaneFile: %v", err)
		}
		if f.TargetDurationSeconds == nil || *f.TargetDurationSeconds != 12 {
			t.Errorf("target = %v", f.TargetDurationSeconds)
		}
		if f.ForceCrashPoint != nil {
			t.Errorf("forceCrashPoint should be unset")
		}
		if e := f.Lanes["medium"]; e.RTP == nil || *e.RTP != 96 || e.HouseEdge != nil {
			t.Errorf("medium = %+v", e)
		}
	})

	t.Run("UnknownField", func(t *testing.T) {
		if _, err := ParseLaneFile([]byte("lanes:\n  safe: {maxMult: 5}\n")); err == nil {
			t.Error("expected error for unknown field")
		}
	})

	t.Run("EdgeAndRTP", func(t *testing.T) {
		if _, err := ParseLaneFile([]byte("lanes:\n  wild: {houseEdge: 0.1, rtp: 90}\n")); err == nil {
			t.Error("expected error when both houseEdge and rtp are set")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		f, err := ParseLaneFile(nil)
		if err != nil || f == nil {
			t.Errorf("empty document: %v, %v", f, err)
		}
	})
}

func TestLoadLaneFileMissing(t *testing.T) {
	f, err := LoadLaneFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || f != nil {
		t.Errorf("missing file: %v, %v", f, err)
	}

	path := filepath.Join(t.TempDir(), "lanes.yaml")
	if err := os.WriteFile(path, []byte("forceCrashPoint: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err = LoadLaneFile(path)
	if err != nil || f.ForceCrashPoint == nil || *f.ForceCrashPoint != 2 {
		t.Errorf("LoadLaneFile = %+v, %v", f, err)
	}
}
