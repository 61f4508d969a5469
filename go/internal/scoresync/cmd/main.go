package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scorepad/go/clients/score_api_client"
	"github.com/mcdev12/scorepad/go/internal/models"
	"github.com/mcdev12/scorepad/go/internal/scorestate"
	"github.com/mcdev12/scorepad/go/internal/scoresync"
	"github.com/mcdev12/scorepad/go/internal/tally"
	"github.com/mcdev12/scorepad/go/internal/wsfeed"
)

// Headless sync client: joins a session by code, follows the live feed,
// and logs reconciled state. Useful for watching a session without a UI
// and as an end-to-end smoke check of the sync stack.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	code := getEnv("SESSION_CODE", "")
	if len(os.Args) > 1 {
		code = os.Args[1]
	}
	if code == "" {
		log.Fatal().Msg("session code required (arg or SESSION_CODE)")
	}

	apiURL := getEnv("SCORE_API_URL", "http://localhost:8080")
	wsURL := getEnv("SCORE_WS_URL", "ws://localhost:8080/ws/session")

	svc := score_api_client.NewScoreApiClient(apiURL)

	cfg := scoresync.DefaultConfig()
	cfg.OnState = func(st scorestate.State) {
		log.Info().Int("players", len(st.Stats)).Msg("state updated")
	}
	cfg.OnWinner = func(w *models.Winner) {
		if w == nil {
			log.Info().Msg("no current winner")
			return
		}
		log.Info().Str("player_id", w.PlayerID.String()).Int("score", w.Score).Msg("winner")
	}
	cfg.OnTally = func(playerID uuid.UUID, ta *tally.Tally) {
		if ta == nil {
			log.Info().Str("player_id", playerID.String()).Msg("tally expired")
			return
		}
		log.Info().Str("player_id", playerID.String()).Int("running_delta", ta.RunningDelta).Msg("tally")
	}

	coordinator := scoresync.NewCoordinator(svc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coordinator.Load(ctx, code); err != nil {
		log.Fatal().Err(err).Str("code", code).Msg("failed to load session")
	}

	sessionID := coordinator.Snapshot().Game.ID
	feedURL := fmt.Sprintf("%s?session_id=%s&client_id=headless", wsURL, sessionID)
	feed := wsfeed.NewFeed(feedURL, coordinator, wsfeed.DefaultFeedConfig())

	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("event feed stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
