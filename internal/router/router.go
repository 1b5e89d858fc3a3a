package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ofuq-backend/internal/handlers"
	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/websocket"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Workspace    *handlers.WorkspaceHandler
	Lecture      *handlers.LectureHandler
	CoreSubject  *handlers.CoreSubjectHandler
	Session      *handlers.SessionHandler
	Quiz         *handlers.QuizHandler
	Dashboard    *handlers.DashboardHandler
	Insight      *handlers.InsightHandler
	Job          *handlers.JobHandler
	WebSocketHub *websocket.Hub
}

func New(auth *middleware.Authenticator, h Handlers, frontendURL string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(middleware.Metrics)

	// Generation is expensive; 5 req/min per admin
	generateLimiter := middleware.NewRateLimiter(5, time.Minute)

	r.Get("/health", h.Health.Get)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Get)

		// ──── WebSocket (token in query) ────
		r.Get("/ws", h.WebSocketHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			// ──── Workspace Routes ────
			r.Route("/workspaces", func(r chi.Router) {
				r.Post("/", h.Workspace.Create)
				r.Get("/", h.Workspace.List)

				r.Route("/{wid}", func(r chi.Router) {
					r.Get("/", h.Workspace.Get)
					r.Post("/join", h.Workspace.Join)
					r.Get("/share", h.Workspace.Share)
					r.Get("/dashboard", h.Dashboard.Get)

					r.Route("/subjects", func(r chi.Router) {
						r.Get("/", h.Workspace.ListSubjects)
						r.Post("/", h.Workspace.CreateSubject)
						r.Put("/{sid}", h.Workspace.RenameSubject)
						r.Delete("/{sid}", h.Workspace.DeleteSubject)

						r.Route("/{sid}/lectures", func(r chi.Router) {
							r.Get("/", h.Lecture.List)
							r.Post("/", h.Lecture.Import)

							r.Route("/{lid}", func(r chi.Router) {
								r.Get("/", h.Lecture.Get)

								r.Route("/session", func(r chi.Router) {
									r.Get("/", h.Session.Get)
									r.Delete("/", h.Session.Discard)
									r.Post("/start", h.Session.Start)
									r.Post("/pause", h.Session.Pause)
									r.Post("/resume", h.Session.Resume)
									r.Post("/stop", h.Session.Stop)
									r.Post("/retry-save", h.Session.RetrySave)
								})

								r.Route("/quiz", func(r chi.Router) {
									r.Get("/", h.Quiz.Get)
									r.Post("/start", h.Quiz.Start)
									r.Post("/toggle", h.Quiz.Toggle)
									r.Post("/submit", h.Quiz.Submit)
									r.Post("/next", h.Quiz.Next)
									r.Post("/restart", h.Quiz.Restart)
								})
							})
						})
					})
				})
			})

			// ──── Lecture import check ────
			r.Post("/lectures/validate", h.Lecture.Validate)

			// ──── Core Subject Routes ────
			r.Route("/core-subjects", func(r chi.Router) {
				r.Get("/", h.CoreSubject.List)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", h.CoreSubject.Create)
					r.Put("/{id}", h.CoreSubject.Rename)
					r.Delete("/{id}", h.CoreSubject.Delete)
				})
			})

			// ──── Insight Routes ────
			r.Route("/insights", func(r chi.Router) {
				r.Get("/today", h.Insight.Today)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.With(generateLimiter.Middleware).Post("/generate", h.Insight.Generate)
					r.Put("/{id}/publish", h.Insight.Publish)
				})
			})

			// ──── Job Routes ────
			r.Get("/jobs/{id}", h.Job.Get)
		})
	})

	return r
}
