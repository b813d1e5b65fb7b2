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

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/config"
	"hiddengems-web/internal/database"
	"hiddengems-web/internal/handlers"
	"hiddengems-web/internal/middleware"
	"hiddengems-web/internal/repository"
	"hiddengems-web/internal/router"
	"hiddengems-web/internal/services"
	"hiddengems-web/internal/websocket"
	"hiddengems-web/internal/worker"
	"hiddengems-web/migrations"
)

func main() {
	log.Println("🚀 Starting Hidden Gems web gateway...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(startupCtx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(startupCtx, pool, migrations.FS); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Backend API Client ────
	clientOpts := []api.Option{api.WithTimeout(cfg.BackendTimeout)}
	if cfg.BackendWithCredentials {
		clientOpts = append(clientOpts, api.WithCookieJar())
	}
	backend := api.New(cfg.BackendURL, clientOpts...)
	if _, err := backend.Health(startupCtx); err != nil {
		log.Printf("✗ Backend health check failed (continuing): %v", err)
	} else {
		log.Printf("✓ Backend reachable at %s", backend.BaseURL())
	}

	// ──── Initialize Repositories ────
	sessionRepo := repository.NewSessionRepo(redisClients.Store)
	posterRepo := repository.NewPosterRepo(redisClients.Store, cfg.PosterTTL)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Initialize Services ────
	sessionAuth := middleware.NewSessionAuth(cfg.SessionSecret, cfg.SessionTTL, sessionRepo)
	sessionAuth.Secure = cfg.IsProduction()

	chats := services.NewChatStore()
	products := services.NewProductBoard()
	authService := services.NewAuthService(backend, sessionRepo, sessionAuth, chats, products, posterRepo, cfg.SessionTTL)
	assistant := services.NewAssistantService(chats, cfg.AssistantTopK)
	queue := worker.NewQueue(redisClients.Queue, jobRepo)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, sessionAuth)
	homeHandler := handlers.NewHomeHandler(authService, cfg.CarouselWindow)
	dashboardHandler := handlers.NewDashboardHandler(authService, products, assistant, queue, posterRepo)
	profileHandler := handlers.NewProfileHandler(authService, queue)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		backend,
		sessionRepo,
		posterRepo,
		jobRepo,
		worker.NewPublisher(redisClients.PubSub),
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	janitor := services.NewSessionJanitor(sessionRepo, chats, products)
	janitor.Start()
	log.Println("✓ Session janitor started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, sessionAuth, sessionRepo, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, time.Minute)

	r := router.New(
		sessionAuth,
		authLimiter,
		authHandler,
		homeHandler,
		dashboardHandler,
		profileHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Synchronous generations wait on the backend for up to its timeout
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		janitor.Stop()
		authLimiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Hidden Gems gateway ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
