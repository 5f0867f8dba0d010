package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KamingLo/TechType/internal/dbconfig"
)

// ScoreRow mirrors the JSON snapshot structure
type ScoreRow struct {
	Username string `json:"username"`
	WPM      int    `json:"wpm"`
}

func main() {
	path := "internal/assets/scores.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var scores []ScoreRow
	if err := json.Unmarshal(data, &scores); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count
	var (
		total    = len(scores)
		inserted int
		errs     int
	)

	for _, s := range scores {
		_, err := pool.Exec(context.Background(),
			`INSERT INTO scores (username, wpm) VALUES ($1, $2)`,
			s.Username, s.WPM,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert %s: %v\n", s.Username, err)
			errs++
			continue
		}
		inserted++
	}

	fmt.Printf("seeded scores: total=%d inserted=%d errors=%d\n", total, inserted, errs)
}
