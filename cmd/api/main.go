package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Placement-Tracker/internal/auth"
	"github.com/justsurfingit/Placement-Tracker/internal/config"
	"github.com/justsurfingit/Placement-Tracker/internal/database"
	"github.com/justsurfingit/Placement-Tracker/internal/handlers"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "placement tracker:", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.IsProduction(), cfg.LogVerbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// 2. Storage
	store, inboxState, closeStore, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Core services
	extractor, err := services.NewExtractor(ctx, cfg.LLMProvider, cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMTimeout, log)
	if err != nil {
		log.Warn("AI extraction disabled", zap.Error(err))
	}
	placements := services.NewPlacementService(store, extractor, auth.ContextIdentity{}, loc, log)

	// 4. Gmail integration (optional)
	var gmailService *gmail.Service
	if cfg.GmailEnabled() {
		httpClient, err := auth.GmailClient(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile)
		if err == nil {
			gmailService, err = gmail.NewService(ctx, option.WithHTTPClient(httpClient))
		}
		if err != nil {
			log.Warn("Gmail suggestions disabled", zap.Error(err))
		} else {
			log.Info("Gmail service connected")
		}
	}
	inbox := services.NewInboxService(gmailService, inboxState, placements, services.NewMatcherService(), log)

	// 5. Auth and rate limiting
	verifier, err := auth.NewJWTVerifier(cfg.JWTSecret, "authenticated")
	if err != nil {
		return err
	}
	var limiter handlers.Limiter = handlers.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		client, err := handlers.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, using in-process rate limiting", zap.Error(err))
		} else {
			defer client.Close()
			limiter = handlers.NewRedisLimiter(client, log)
		}
	}

	// 6. Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	exportOpts := services.ExportOptions{DateLayout: cfg.ExportDateLayout, Location: loc}
	router := handlers.NewRouter(handlers.RouterConfig{
		Placements:         handlers.NewPlacementHandler(placements, exportOpts, cfg.UpcomingHorizonDays, log),
		Inbox:              handlers.NewInboxHandler(inbox, placements, log),
		Verifier:           verifier,
		Limiter:            limiter,
		ExtractLimit:       cfg.ExtractRateLimit,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Log:                log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(cfg *config.Config, log *zap.Logger) (services.PlacementStore, services.InboxState, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using the in-memory store; data is lost on restart")
		return database.NewMemoryStore(), database.NewMemoryInboxState(), func() {}, nil
	}
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(db); err != nil {
			log.Warn("closing database", zap.Error(err))
		}
	}
	return database.NewGormStore(db), database.NewGormInboxState(db), closeDB, nil
}
