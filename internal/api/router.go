package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lazvid/backend/internal/api/handlers"
	"github.com/lazvid/backend/internal/api/middleware"
	"github.com/lazvid/backend/internal/auth"
	"github.com/lazvid/backend/internal/config"
	"github.com/lazvid/backend/internal/db"
	"github.com/lazvid/backend/internal/db/models"
	"github.com/lazvid/backend/internal/job"
	"github.com/lazvid/backend/internal/session"
)

const maxJSONBody = 8 << 20

// Services are the long-lived components the HTTP layer drives.
type Services struct {
	DB       *db.Database
	JWT      *auth.JWTService
	Jobs     *job.JobQueue
	Sessions *session.Store
	Tasks    handlers.TaskStarter
	Models   handlers.ModelLister
	Settings *handlers.Resolver
}

func NewRouter(cfg *config.Config, svc Services) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)

	// Handlers
	authHandler := handlers.NewAuthHandler(svc.DB, svc.JWT)
	adminHandler := handlers.NewAdminHandler(svc.DB, loginLimiter)
	settingsHandler := handlers.NewSettingsHandler(svc.DB)
	modelsHandler := handlers.NewGeminiModelsHandler(svc.Models)
	jobHandler := handlers.NewJobHandler(svc.Jobs, svc.Sessions)
	sessionHandler := handlers.NewSessionHandler(svc.Sessions, svc.Tasks,
		svc.Settings.DefaultTargetLanguage, svc.Settings.HasGeminiKey, cfg.MaxUploadBytes())
	playbackHandler := handlers.NewPlaybackHandler(svc.Sessions)
	streamHandler := handlers.NewStreamHandler(svc.Sessions)
	userHandler := handlers.NewUserHandler(svc.DB)
	metaHandler := handlers.NewMetaHandler(svc.Sessions, svc.Settings.DefaultTargetLanguage)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Get("/health", metaHandler.Health)
		r.With(loginLimiter.Handler, middleware.MaxBodySize(1<<16)).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(svc.JWT))

			// Media upload carries its own body limit
			r.Put("/sessions/{id}/media", sessionHandler.UploadMedia)

			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(maxJSONBody))

				r.Get("/auth/me", authHandler.Me)
				r.Put("/auth/password", userHandler.ChangePassword)
				r.Get("/languages", metaHandler.Languages)

				// Sessions
				r.Post("/sessions", sessionHandler.Create)
				r.Get("/sessions", sessionHandler.List)
				r.Route("/sessions/{id}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Delete("/", sessionHandler.Delete)
					r.Post("/reset", sessionHandler.Reset)
					r.Put("/language", sessionHandler.SetLanguage)
					r.Post("/generate", sessionHandler.Generate)
					r.Post("/refine", sessionHandler.Refine)
					r.Post("/summary", sessionHandler.Summary)
					r.Put("/transcript", sessionHandler.PutTranscript)
					r.Get("/transcript", sessionHandler.GetTranscript)
					r.Get("/export/{format}", sessionHandler.Export)
					r.Get("/markdown/{kind}", sessionHandler.Markdown)
					r.Get("/media", streamHandler.Media)

					// Playback
					r.Get("/playback", playbackHandler.State)
					r.Post("/playback/events", playbackHandler.Events)
					r.Post("/playback/{command}", playbackHandler.Command)
				})

				// Jobs
				r.Get("/jobs", jobHandler.ListJobs)
				r.Get("/jobs/{id}", jobHandler.GetJob)
				r.Delete("/jobs/{id}", jobHandler.CancelJob)

				// Admin
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleAdmin))

					r.Get("/settings", settingsHandler.GetSettings)
					r.Put("/settings", settingsHandler.UpdateSettings)
					r.Get("/gemini/models", modelsHandler.ListModels)

					r.Get("/admin/users", adminHandler.ListUsers)
					r.Post("/admin/users", adminHandler.CreateUser)
					r.Delete("/admin/users/{id}", adminHandler.DeleteUser)
					r.Get("/admin/rate-limit", adminHandler.RateLimitStatus)
					r.Delete("/admin/rate-limit", adminHandler.ClearRateLimit)
				})
			})
		})
	})

	return r
}
