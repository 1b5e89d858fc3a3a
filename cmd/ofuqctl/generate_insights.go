package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ofuq-backend/internal/cache"
	"ofuq-backend/internal/config"
	"ofuq-backend/internal/database"
	"ofuq-backend/internal/insights"
	"ofuq-backend/internal/repository"
	"ofuq-backend/internal/services"
	"ofuq-backend/internal/websocket"
)

var generateInsightsCmd = &cobra.Command{
	Use:   "generate-insights",
	Short: "Generate the coming week of daily insights now",
	RunE:  runGenerateInsights,
}

func runGenerateInsights(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClients.Close()

	var lock insights.Lock = repository.NewGenerationLockRepo(pool)
	if cfg.LockBackend == config.LockBackendFirestore {
		fb, err := database.NewFirebaseClients(cmd.Context(), cfg.FirebaseProject, cfg.CredentialsFile, true, false)
		if err != nil {
			return err
		}
		defer fb.Close()
		lock = insights.NewFirestoreLock(fb.Firestore)
	}

	gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		return err
	}
	defer gemini.Close()

	// Broadcast-only hub: connected servers relay the event to their clients.
	hub := websocket.NewHub(redisClients.PubSub, nil)

	svc, err := insights.NewService(lock, gemini, repository.NewInsightRepo(pool),
		cache.NewRedis(redisClients.Cache, "ofuq:"), hub)
	if err != nil {
		return err
	}

	res := svc.GenerateWeekly(cmd.Context())
	if res.Error == insights.MsgAlreadyGenerated || res.Error == insights.MsgStillAvailable {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing generated: "+res.Error)
		return nil
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Generated %d insights\n", res.Count)
	return nil
}
