package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/KamingLo/TechType/internal/dbconfig"
	"github.com/KamingLo/TechType/internal/game"
	"github.com/KamingLo/TechType/internal/leaderboard"
	"github.com/KamingLo/TechType/internal/server"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	listenAddr := getEnv("LISTEN_ADDR", ":50000")
	cacheTTL := time.Duration(getEnvAsInt("LEADERBOARD_CACHE_TTL_SEC", 5)) * time.Second

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scores leaderboard.Source
	if getEnv("DB_DISABLE", "") == "1" {
		// Local development without Postgres; scores vanish on restart.
		log.Warn().Msg("database disabled, using in-memory score store")
		scores = leaderboard.NewMemoryStore()
	} else {
		// Database configuration
		dbCfg := dbconfig.NewConfigFromEnv()

		// Connect to database
		db, err := sql.Open("postgres", dbCfg.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		// Test connection
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}

		if err := leaderboard.EnsureSchema(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure schema")
		}

		log.Info().Str("database", dbCfg.Database).Msg("connected to database")
		scores = leaderboard.NewCachedSource(leaderboard.NewRepository(db), cacheTTL)
	}

	coordinator := game.NewCoordinator(gameConfigFromEnv(), scores, clockwork.NewRealClock())
	srv := server.New(listenAddr, coordinator)

	log.Info().
		Str("listen_addr", listenAddr).
		Msg("starting match coordinator")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("shutdown complete")
}
