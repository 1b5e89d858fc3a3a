package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"

	LockBackendPostgres  = "postgres"
	LockBackendFirestore = "firestore"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Auth
	JWTSecret       string
	AuthProvider    string
	FirebaseProject string
	CredentialsFile string

	// Daily insight generation
	LockBackend             string
	InsightSchedulerEnabled bool
	InsightInterval         time.Duration
	WorkerCount             int

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Study
	TimerTick        time.Duration
	DailyGoalMinutes int
	QuizRunTTL       time.Duration

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                    getEnvOrDefault("PORT", "8080"),
		Env:                     getEnvOrDefault("ENV", "development"),
		DatabaseURL:             mustGetEnv("DATABASE_URL"),
		RedisURL:                mustGetEnv("REDIS_URL"),
		JWTSecret:               mustGetEnv("JWT_SECRET"),
		AuthProvider:            strings.ToLower(getEnvOrDefault("AUTH_PROVIDER", AuthProviderJWT)),
		FirebaseProject:         getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
		CredentialsFile:         getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", ""),
		LockBackend:             strings.ToLower(getEnvOrDefault("LOCK_BACKEND", LockBackendPostgres)),
		InsightSchedulerEnabled: getEnvAsBoolOrDefault("INSIGHT_SCHEDULER_ENABLED", true),
		InsightInterval:         time.Duration(getEnvAsIntOrDefault("INSIGHT_INTERVAL_MINUTES", 60)) * time.Minute,
		WorkerCount:             getEnvAsIntOrDefault("WORKER_COUNT", 2),
		GeminiAPIKey:            mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:             getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs:    getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		TimerTick:               time.Duration(getEnvAsIntOrDefault("TIMER_TICK_MS", 500)) * time.Millisecond,
		DailyGoalMinutes:        getEnvAsIntOrDefault("DAILY_GOAL_MINUTES", 120),
		QuizRunTTL:              time.Duration(getEnvAsIntOrDefault("QUIZ_RUN_TTL_MINUTES", 240)) * time.Minute,
		FrontendURL:             getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}

	return cfg
}

// Validate rejects option values the server cannot act on.
func (c *Config) Validate() error {
	switch c.AuthProvider {
	case AuthProviderJWT:
	case AuthProviderFirebase:
		if c.FirebaseProject == "" {
			return fmt.Errorf("AUTH_PROVIDER=firebase requires FIREBASE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.LockBackend {
	case LockBackendPostgres:
	case LockBackendFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("LOCK_BACKEND=firestore requires FIREBASE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}

	if c.TimerTick <= 0 {
		return fmt.Errorf("TIMER_TICK_MS must be positive")
	}
	if c.DailyGoalMinutes <= 0 {
		return fmt.Errorf("DAILY_GOAL_MINUTES must be positive")
	}
	return nil
}

// NeedsFirebase reports whether a Firebase app must be initialised.
func (c *Config) NeedsFirebase() bool {
	return c.AuthProvider == AuthProviderFirebase || c.LockBackend == LockBackendFirestore
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// Require returns one required variable, for tools that need only part of
// the server configuration.
func Require(key string) (string, error) {
	godotenv.Load()
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return val, nil
}
