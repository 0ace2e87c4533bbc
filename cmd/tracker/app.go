package main

import (
	"context"
	"errors"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/auth"
	"github.com/justsurfingit/Placement-Tracker/internal/config"
	"github.com/justsurfingit/Placement-Tracker/internal/database"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/services"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// cliApp is everything a command needs, opened once per invocation.
type cliApp struct {
	cfg   *config.Config
	log   *zap.Logger
	svc   *services.PlacementService
	ws    *services.Workspace
	inbox *services.InboxService
	now   func() time.Time
	close func()
}

func (a *cliApp) location() *time.Location {
	return a.ws.Session().Location
}

func (a *cliApp) today() time.Time {
	return a.now().In(a.location())
}

type openFunc func(ctx context.Context, opts globalOptions) (*cliApp, error)

func openApp(ctx context.Context, opts globalOptions) (*cliApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(false, opts.verbose || cfg.LogVerbose)
	if err != nil {
		return nil, err
	}
	userID := opts.user
	if userID == "" {
		userID = cfg.TrackerUserID
	}
	if userID == "" {
		return nil, errors.New("no user: set TRACKER_USER_ID or pass --user")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, inboxState, closeStore, err := openStores(cfg, log)
	if err != nil {
		return nil, err
	}

	var extractor services.Extractor
	if cfg.GeminiAPIKey != "" {
		extractor, err = services.NewExtractor(ctx, cfg.LLMProvider, cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMTimeout, log)
		if err != nil {
			log.Warn("AI extraction disabled", zap.Error(err))
		}
	}
	svc := services.NewPlacementService(store, extractor, auth.StaticIdentity(userID), loc, log)

	var gmailService *gmail.Service
	if cfg.GmailEnabled() {
		client, err := auth.GmailClient(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile)
		if err == nil {
			gmailService, err = gmail.NewService(ctx, option.WithHTTPClient(client))
		}
		if err != nil {
			log.Debug("Gmail not available", zap.Error(err))
		}
	}
	inbox := services.NewInboxService(gmailService, inboxState, svc, services.NewMatcherService(), log)

	sess, err := svc.Session(ctx)
	if err != nil {
		closeStore()
		return nil, err
	}
	ws, err := services.LoadWorkspace(ctx, svc, sess)
	if err != nil {
		closeStore()
		return nil, err
	}
	return &cliApp{
		cfg:   cfg,
		log:   log,
		svc:   svc,
		ws:    ws,
		inbox: inbox,
		now:   time.Now,
		close: func() {
			closeStore()
			_ = log.Sync()
		},
	}, nil
}

func openStores(cfg *config.Config, log *zap.Logger) (services.PlacementStore, services.InboxState, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		return database.NewMemoryStore(), database.NewMemoryInboxState(), func() {}, nil
	}
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return database.NewGormStore(db), database.NewGormInboxState(db), func() { _ = database.Close(db) }, nil
}
