package main

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KamingLo/TechType/internal/game"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// gameConfigFromEnv assembles the coordinator config, optionally replacing
// the passage corpus from a YAML file.
func gameConfigFromEnv() game.Config {
	cfg := game.DefaultConfig()
	cfg.RaceDuration = time.Duration(getEnvAsInt("RACE_DURATION_SEC", 60)) * time.Second
	cfg.CountdownFrom = getEnvAsInt("COUNTDOWN_FROM", 3)
	cfg.LeaderboardSize = getEnvAsInt("LEADERBOARD_SIZE", 10)

	if path := os.Getenv("TEXTS_FILE"); path != "" {
		texts, err := game.LoadTexts(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not load texts file, using built-in corpus")
		} else {
			cfg.Texts = texts
		}
	}
	return cfg
}
