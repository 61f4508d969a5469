package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/scorepad/go/internal/dbconfig"
)

// Seeds a demo session with four players, handy for local development.
func main() {
	ctx := context.Background()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	code := "DEMO42"
	if len(os.Args) > 1 {
		code = os.Args[1]
	}

	sessionID := uuid.New()
	_, err = pool.Exec(ctx,
		`INSERT INTO sessions (id, code, win_condition_type, win_threshold) VALUES ($1, $2, $3, $4)`,
		sessionID, code, "at-least", 100,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert session: %v\n", err)
		os.Exit(1)
	}

	names := []string{"Ana", "Ben", "Cleo", "Dev"}
	for i, name := range names {
		_, err = pool.Exec(ctx,
			`INSERT INTO players (id, session_id, display_name, position) VALUES ($1, $2, $3, $4)`,
			uuid.New(), sessionID, name, i,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert player %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded session %s with code %s and %d players\n", sessionID, code, len(names))
}
