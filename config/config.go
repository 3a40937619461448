package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the process configuration read from the environment.
type Config struct {
	Addr string

	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	RedisDB       int

	LanesFile      string
	GameMode       string
	InitialBalance string
	DefaultBet     string
	ServerSeed     string

	AutoStart     bool
	DebugCrashLog bool
}

// Load reads the environment, falling back to the defaults in constants.go.
// Optional backends (Postgres, Redis) stay disabled when their URL is empty.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:           getEnv("ADDR", ServerHost+":"+ServerPort),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		LanesFile:      getEnv("LANES_FILE", "lanes.yaml"),
		GameMode:       getEnv("GAME_MODE", "triple"),
		InitialBalance: getEnv("INITIAL_BALANCE", InitialBalance),
		DefaultBet:     getEnv("DEFAULT_BET", DefaultBetAmount),
		ServerSeed:     os.Getenv("SERVER_SEED"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AutoStart, err = getBool("AUTO_START", false); err != nil {
		return nil, err
	}
	if cfg.DebugCrashLog, err = getBool("DEBUG_CRASH_LOG", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
