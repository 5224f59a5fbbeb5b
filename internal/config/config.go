package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"whackgoblin/internal/board"
	"whackgoblin/internal/gamedata"
)

type Config struct {
	Port           string
	Mode           string
	GridSize       int
	SpawnInterval  int // milliseconds
	TargetLifetime int // milliseconds
	RoamInterval   int // milliseconds
	MaxMissed      int
	MissPenalty    int
	AvoidRepeat    bool
	SessionTTL     int // minutes
	Sound          bool
}

func Load() Config {
	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		Mode:           getEnv("GAME_MODE", string(gamedata.ModeWhack)),
		GridSize:       getEnvInt("GRID_SIZE", 4),
		SpawnInterval:  getEnvInt("SPAWN_INTERVAL_MS", 1000),
		TargetLifetime: getEnvInt("TARGET_LIFETIME_MS", 1000),
		RoamInterval:   getEnvInt("ROAM_INTERVAL_MS", 2000),
		MaxMissed:      getEnvInt("MAX_MISSED", 5),
		MissPenalty:    getEnvInt("MISS_PENALTY", 1),
		AvoidRepeat:    getEnvBool("AVOID_REPEAT", true),
		SessionTTL:     getEnvInt("SESSION_TTL_MINUTES", 60),
		Sound:          getEnvBool("SOUND", true),
	}
	if cfg.GridSize < 1 || cfg.GridSize > board.MaxSize {
		cfg.GridSize = board.DefaultSize
	}
	return cfg
}

// Game converts the loaded settings into a game configuration.
func (c Config) Game() gamedata.Config {
	g := gamedata.DefaultConfig()
	g.Mode = gamedata.Mode(strings.ToLower(c.Mode))
	g.GridSize = c.GridSize
	g.SpawnInterval = time.Duration(c.SpawnInterval) * time.Millisecond
	g.TargetLifetime = time.Duration(c.TargetLifetime) * time.Millisecond
	g.RoamInterval = time.Duration(c.RoamInterval) * time.Millisecond
	g.MaxMissed = c.MaxMissed
	g.MissPenalty = c.MissPenalty
	g.AvoidRepeat = c.AvoidRepeat
	return g
}

func (c Config) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Minute
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
