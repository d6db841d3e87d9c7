package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/themobileprof/symptomcheck/internal/api"
	"github.com/themobileprof/symptomcheck/internal/api/middleware"
	"github.com/themobileprof/symptomcheck/internal/app"
	"github.com/themobileprof/symptomcheck/internal/chat"
	"github.com/themobileprof/symptomcheck/internal/config"
	"github.com/themobileprof/symptomcheck/internal/conversation"
	"github.com/themobileprof/symptomcheck/internal/enhancer"
	"github.com/themobileprof/symptomcheck/internal/ws"
)

const (
	sessionIdle   = 30 * time.Minute
	pruneInterval = 5 * time.Minute
)

func main() {
	configFile := flag.String("config", "", "path to a config file (default: symptom.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.File != "" {
		log.Printf("Using config file %s", cfg.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start analyzer: %v", err)
	}
	defer svc.Close()

	if cfg.JWT.Secret == "" {
		log.Println("Warning: JWT_SECRET not set; clinician audience is disabled")
	}

	chatEngine := chat.NewEngine(svc.Analyzer, conversation.NewManager(cfg.Chat.HistorySize))
	chatHandler := ws.NewChatHandler(chatEngine, cfg.JWT.Secret, cfg.Chat.MessagesPerMinute)

	catalogSource := "builtin"
	if cfg.Database.Driver != "" {
		catalogSource = cfg.Database.Driver
	}

	ipLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute)
	subjectLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute)
	go ipLimiter.Run(ctx)
	go subjectLimiter.Run(ctx)
	go chatHandler.PruneLoop(ctx, pruneInterval, sessionIdle)

	router := api.NewRouter(api.Handlers{
		Analyze:        api.NewAnalyzeHandler(svc.Analyzer),
		Symptoms:       api.NewSymptomHandler(svc.Lexicon, svc.Catalog),
		Health:         api.NewHealthHandler(svc.Model.Sufficiency(), enhancer.Available(svc.Enhancer), catalogSource),
		Chat:           chatHandler.HandleChat,
		FlushCatalog:   svc.Catalog.Flush,
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Limiter:        ipLimiter,
		SubjectLimiter: subjectLimiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.Port)
		log.Printf("API endpoints:")
		log.Printf("   GET    /health")
		log.Printf("   POST   /api/analyze")
		log.Printf("   GET    /api/symptoms")
		log.Printf("   GET    /api/conditions/:id")
		log.Printf("   POST   /api/admin/catalog/flush")
		log.Printf("   WS     /ws/chat")
		log.Printf("Press Ctrl+C to stop")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
