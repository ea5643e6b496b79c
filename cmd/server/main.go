package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickem/internal/config"
	"pickem/internal/database"
	"pickem/internal/geo"
	"pickem/internal/handlers"
	"pickem/internal/repository"
	"pickem/internal/security"
	"pickem/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Seed the nickname screening list
	if cfg.SeedBlockedNames {
		if err := db.SeedBlockedWords(); err != nil {
			log.Printf("Warning: Failed to seed blocked words filter: %v", err)
		}
	}

	// Initialize repositories
	hostRepo := repository.NewHostRepository(db)
	cardRepo := repository.NewCardRepository(db)
	gameRepo := repository.NewGameRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	authService := service.NewAuthService(hostRepo, cfg.SessionDuration, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.AppBaseURL)
	cardService := service.NewCardService(cardRepo)
	gameService := service.NewGameService(gameRepo, cardRepo, playerRepo, eventRepo, hostRepo, emailService,
		cfg.AppBaseURL, cfg.GameRetention, cfg.BypassSecretTTL, cfg.DefaultAdmissionRadiusKm)
	syncService := service.NewSyncService(gameRepo, playerRepo, eventRepo)

	limiter := security.NewRateLimiter(security.NewMemoryAttemptStore(), cfg.JoinRateLimit, cfg.JoinRateWindow)
	admissionService := service.NewAdmissionService(gameRepo, playerRepo, eventRepo, db, geo.NoopLocator{}, limiter, cfg.DefaultAdmissionRadiusKm)

	// Linked-account guest joins share the host Google client
	var guestVerifier *security.IDTokenVerifier
	if cfg.GoogleClientID != "" {
		guestVerifier = security.GoogleIDTokenVerifier(cfg.GoogleClientID)
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService, emailService)
	cardHandler := handlers.NewCardHandler(cardService)
	gameHandler := handlers.NewGameHandler(gameService, admissionService)
	joinHandler := handlers.NewJoinHandler(admissionService, guestVerifier)
	syncHandler := handlers.NewSyncHandler(syncService)

	// Setup routes
	mux := http.NewServeMux()

	// Host auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", middleware.RequireHost(authHandler.Me))
	mux.HandleFunc("GET /auth/google/start", authHandler.StartGoogleAuth)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)

	// Cards
	mux.HandleFunc("POST /api/cards", middleware.RequireHost(cardHandler.Create))
	mux.HandleFunc("GET /api/cards", middleware.RequireHost(cardHandler.List))
	mux.HandleFunc("GET /api/cards/{id}", middleware.RequireHost(cardHandler.Get))
	mux.HandleFunc("PUT /api/cards/{id}", middleware.RequireHost(cardHandler.Update))
	mux.HandleFunc("DELETE /api/cards/{id}", middleware.RequireHost(cardHandler.Delete))

	// Games (host)
	mux.HandleFunc("POST /api/games", middleware.RequireHost(gameHandler.Create))
	mux.HandleFunc("GET /api/games", middleware.RequireHost(gameHandler.List))
	mux.HandleFunc("POST /api/games/{id}/start", middleware.RequireHost(gameHandler.Start))
	mux.HandleFunc("POST /api/games/{id}/end", middleware.RequireHost(gameHandler.End))
	mux.HandleFunc("POST /api/games/{id}/late-joins", middleware.RequireHost(gameHandler.SetLateJoins))
	mux.HandleFunc("GET /api/games/{id}/qr", middleware.RequireHost(gameHandler.QRCode))
	mux.HandleFunc("GET /api/games/{id}/suggestions", middleware.RequireHost(gameHandler.OverrideSuggestions))
	mux.HandleFunc("GET /api/games/{id}/pending", middleware.RequireHost(gameHandler.PendingJoins))
	mux.HandleFunc("POST /api/games/{id}/pending/{playerId}", middleware.RequireHost(gameHandler.ReviewJoin))

	// Key sync (host)
	mux.HandleFunc("GET /api/games/{id}/key", middleware.RequireHost(syncHandler.ReadKey))
	mux.HandleFunc("PUT /api/games/{id}/key", middleware.RequireHost(syncHandler.WriteKey))

	// Shared state
	mux.HandleFunc("GET /api/games/{id}/state", gameHandler.State)

	// Guest entry and picks sync
	mux.HandleFunc("GET /api/join/{code}", joinHandler.Preview)
	mux.HandleFunc("POST /api/join/{code}", joinHandler.Join)
	mux.HandleFunc("GET /api/games/{id}/picks", syncHandler.ReadPicks)
	mux.HandleFunc("PUT /api/games/{id}/picks", syncHandler.WritePicks)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background cleanup
	go cleanupLoop(authService, gameService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// cleanupLoop periodically removes expired sessions and games
func cleanupLoop(authService *service.AuthService, gameService *service.GameService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := gameService.CleanupExpired(); err != nil {
			log.Printf("Error cleaning up expired games: %v", err)
		}
	}
}
