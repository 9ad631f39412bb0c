package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pagepilot/pagepilot/internal/api"
	"github.com/pagepilot/pagepilot/internal/browser"
	"github.com/pagepilot/pagepilot/internal/driver"
	"github.com/pagepilot/pagepilot/internal/executor"
	"github.com/pagepilot/pagepilot/internal/planner"
	"github.com/pagepilot/pagepilot/internal/ratelimit"
	"github.com/pagepilot/pagepilot/internal/session"
	"github.com/pagepilot/pagepilot/internal/task"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	log.Println("Starting PagePilot...")

	drv, err := buildDriver()
	if err != nil {
		log.Fatalf("Failed to initialize browser driver: %v", err)
	}
	defer drv.Close()
	log.Println("✓ Browser driver initialized")

	registry := session.NewRegistry(drv, session.Config{
		MaxSessions:    envInt("MAX_SESSIONS", 10),
		DefaultTimeout: envDuration("SESSION_TIMEOUT_SECONDS", 30*time.Minute),
		MaxTimeout:     envDuration("SESSION_MAX_TIMEOUT_SECONDS", 6*time.Hour),
		ReapInterval:   5 * time.Second,
	})
	defer registry.Stop()
	log.Println("✓ Session registry initialized")

	exec := executor.New(executor.DefaultConfig())

	pl := planner.New(buildPlannerBackend(), planner.Config{
		Timeout: envDuration("PLANNER_TIMEOUT_SECONDS", 30*time.Second),
		MaxWait: exec.MaxWait(),
	})

	runner := task.NewRunner(registry, exec, pl)

	requestsPerHour := envInt("RATE_LIMIT_PER_HOUR", 100)
	limiter := ratelimit.NewLimiter(requestsPerHour, envInt("RATE_LIMIT_BURST", 10))
	log.Printf("✓ Rate limiter initialized (%d req/hour per client)", requestsPerHour)

	handler := api.NewHandler(registry, exec, runner)
	router := handler.SetupRoutes(limiter, requestsPerHour)
	log.Println("✓ HTTP routes configured")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", port)
		log.Printf("API endpoints available at http://localhost:%s/v1", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped cleanly")
}

// buildDriver picks the browser backend: a shared local headless Chromium by
// default, or one Docker container per session with BROWSER_BACKEND=docker.
func buildDriver() (driver.Driver, error) {
	if os.Getenv("BROWSER_BACKEND") == "docker" {
		pool, err := browser.NewPool()
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		log.Println("Ensuring Chrome image is available...")
		if err := pool.EnsureImage(ctx); err != nil {
			return nil, err
		}

		return driver.NewPool(pool)
	}

	return driver.NewPlaywright()
}

// buildPlannerBackend wires the LLM planner when an endpoint is configured.
// Without one the planner runs in permanent fallback mode; the service stays
// useful, it just plans deterministically.
func buildPlannerBackend() planner.Backend {
	model := os.Getenv("PLANNER_MODEL")
	baseURL := os.Getenv("PLANNER_BASE_URL")
	apiKey := os.Getenv("OPENAI_API_KEY")

	if apiKey == "" && baseURL == "" {
		log.Println("No planner backend configured, task planning runs in fallback mode")
		return nil
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if apiKey == "" {
		// Local OpenAI-compatible servers (Ollama) accept any key.
		apiKey = "local"
	}

	log.Printf("✓ Planner backend configured (model %s)", model)
	return planner.NewOpenAIBackend(apiKey, baseURL, model)
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		log.Printf("Invalid %s=%q, using %s", key, v, fallback)
	}
	return fallback
}
