package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazvid/backend/internal/api"
	"github.com/lazvid/backend/internal/api/handlers"
	"github.com/lazvid/backend/internal/auth"
	"github.com/lazvid/backend/internal/config"
	"github.com/lazvid/backend/internal/db"
	"github.com/lazvid/backend/internal/generate"
	"github.com/lazvid/backend/internal/job"
	"github.com/lazvid/backend/internal/pipeline"
	"github.com/lazvid/backend/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. Configuration comes from the YAML file named by
CONFIG_FILE and from environment variables, which take precedence.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(config.Load())
	},
}

func serve(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	database, err := db.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("Admin user ensured: %s", cfg.AdminUsername)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs := job.NewJobQueue(database.DB())
	defer jobs.Stop()

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.Run(ctx)

	resolver := &handlers.Resolver{
		DB:             database,
		GeminiKey:      cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		TargetLanguage: cfg.TargetLanguage,
	}
	gemini := generate.NewGeminiClient(resolver.GeminiAPIKey, resolver.GeminiModel)
	tasks := pipeline.NewService(sessions, gemini, jobs)

	router := api.NewRouter(cfg, api.Services{
		DB:       database,
		JWT:      auth.NewJWTService(cfg.JWTSecret),
		Jobs:     jobs,
		Sessions: sessions,
		Tasks:    tasks,
		Models:   gemini,
		Settings: resolver,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if !resolver.HasGeminiKey() {
			log.Printf("WARNING: no Gemini API key configured; set one in settings before generating")
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
	return nil
}
