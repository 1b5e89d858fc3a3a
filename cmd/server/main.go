package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ofuq-backend/internal/analytics"
	"ofuq-backend/internal/cache"
	"ofuq-backend/internal/config"
	"ofuq-backend/internal/database"
	"ofuq-backend/internal/handlers"
	"ofuq-backend/internal/insights"
	"ofuq-backend/internal/lectureimport"
	"ofuq-backend/internal/middleware"
	"ofuq-backend/internal/models"
	"ofuq-backend/internal/quiz"
	"ofuq-backend/internal/repository"
	"ofuq-backend/internal/router"
	"ofuq-backend/internal/services"
	"ofuq-backend/internal/studytimer"
	"ofuq-backend/internal/websocket"
	"ofuq-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Ofuq Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, database.Migrations()); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Initialize Firebase (optional) ────
	var firebaseClients *database.FirebaseClients
	if cfg.NeedsFirebase() {
		firebaseClients, err = database.NewFirebaseClients(
			context.Background(),
			cfg.FirebaseProject,
			cfg.CredentialsFile,
			cfg.LockBackend == config.LockBackendFirestore,
			cfg.AuthProvider == config.AuthProviderFirebase,
		)
		if err != nil {
			log.Fatalf("✗ Firebase initialization failed: %v", err)
		}
		defer firebaseClients.Close()
		log.Println("✓ Firebase initialized")
	}

	// ──── Initialize Repositories ────
	workspaceRepo := repository.NewWorkspaceRepo(pool)
	subjectRepo := repository.NewSubjectRepo(pool)
	lectureRepo := repository.NewLectureRepo(pool)
	coreSubjectRepo := repository.NewCoreSubjectRepo(pool)
	sessionRepo := repository.NewStudySessionRepo(pool)
	quizResultRepo := repository.NewQuizResultRepo(pool)
	insightRepo := repository.NewInsightRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	var lock insights.Lock = repository.NewGenerationLockRepo(pool)
	if cfg.LockBackend == config.LockBackendFirestore {
		lock = insights.NewFirestoreLock(firebaseClients.Firestore)
	}

	// ──── Step 6: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Step 7: Authentication ────
	var verifier middleware.TokenVerifier
	switch cfg.AuthProvider {
	case config.AuthProviderFirebase:
		verifier = middleware.NewFirebaseAuth(firebaseClients.Auth)
	default:
		verifier = middleware.NewJWTAuth(cfg.JWTSecret)
	}
	authenticator := middleware.NewAuthenticator(verifier)
	log.Printf("✓ Auth provider: %s", cfg.AuthProvider)

	// ──── Step 8: Start WebSocket Hub ────
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := websocket.NewHub(redisClients.PubSub, verifier)
	go wsHub.Run(hubCtx)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Services ────
	store := cache.NewRedis(redisClients.Cache, "ofuq:")

	insightService, err := insights.NewService(lock, geminiService, insightRepo, store, wsHub)
	if err != nil {
		log.Fatalf("✗ Insight service initialization failed: %v", err)
	}
	analyticsService := analytics.NewService(sessionRepo, quizResultRepo, subjectRepo, store, cfg.DailyGoalMinutes)

	lectureValidator, err := lectureimport.NewValidator()
	if err != nil {
		log.Fatalf("✗ Lecture schema compilation failed: %v", err)
	}

	workspaceService := services.NewWorkspaceService(workspaceRepo, subjectRepo, cfg.FrontendURL)
	lectureService := services.NewLectureService(workspaceService, lectureRepo, lectureValidator)
	coreSubjectService := services.NewCoreSubjectService(coreSubjectRepo)
	studyService := services.NewStudyService(
		lectureService,
		studytimer.NewRegistry(),
		sessionRepo,
		wsHub,
		analyticsService,
		cfg.TimerTick,
	)
	quizService := services.NewQuizService(
		lectureService,
		quiz.NewRunStore(store, cfg.QuizRunTTL),
		quizResultRepo,
		analyticsService,
	)
	jobService := services.NewJobService(jobRepo, func(ctx context.Context, j *models.Job) error {
		return worker.Enqueue(ctx, redisClients.Queue, j)
	})

	// ──── Step 9: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, jobRepo, insightService, wsHub, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	var scheduler *services.InsightScheduler
	if cfg.InsightSchedulerEnabled {
		scheduler = services.NewInsightScheduler(insightService, cfg.InsightInterval)
		scheduler.Start()
		log.Printf("✓ Insight scheduler started (every %s)", cfg.InsightInterval)
	}

	// ──── Initialize Handlers ────
	h := router.Handlers{
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": pool,
			"redis":    redisClients,
		}),
		Workspace:    handlers.NewWorkspaceHandler(workspaceService),
		Lecture:      handlers.NewLectureHandler(lectureService),
		CoreSubject:  handlers.NewCoreSubjectHandler(coreSubjectService),
		Session:      handlers.NewSessionHandler(studyService),
		Quiz:         handlers.NewQuizHandler(quizService),
		Dashboard:    handlers.NewDashboardHandler(workspaceService, analyticsService),
		Insight:      handlers.NewInsightHandler(insightService, jobService, store),
		Job:          handlers.NewJobHandler(jobService),
		WebSocketHub: wsHub,
	}

	// ──── Step 10: Start HTTP Server ────
	r := router.New(authenticator, h, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		if scheduler != nil {
			scheduler.Stop()
		}
		workerPool.Stop()
		studyService.Shutdown()
		stopHub()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Ofuq Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
