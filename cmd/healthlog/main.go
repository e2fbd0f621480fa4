package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	adapthttp "healthlog/internal/adapter/http"
	"healthlog/internal/adapter/llm"
	"healthlog/internal/adapter/memory"
	"healthlog/internal/adapter/postgres"
	"healthlog/internal/app"
	"healthlog/internal/config"
	"healthlog/internal/domain"
)

type stores struct {
	records  domain.RecordStore
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.Logger()

	st, err := openStores(cfg)
	if err != nil {
		logger.WithError(err).Fatal("db open")
	}
	defer func() { _ = st.close() }()

	var completer domain.Completer
	if cfg.LLM.APIKey != "" {
		c, err := llm.New(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("llm client")
		}
		completer = c
	}

	var oidcCfg adapthttp.OIDCConfig
	if cfg.OIDC.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		oidcCfg, err = adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("oidc discovery")
		}
	}

	authSvc := app.NewAuthService(st.users, st.sessions, cfg.SessionTTL, logger)
	srv := adapthttp.New(adapthttp.Services{
		Records:   app.NewRecordService(st.records, logger),
		Stats:     app.NewStatsService(st.records),
		Assistant: app.NewAssistantService(completer),
		Auth:      authSvc,
	}, adapthttp.Options{
		WebDir:         cfg.WebDir,
		ForwardAuth:    cfg.ForwardAuth,
		ImportMaxBytes: cfg.ImportMaxBytes,
		Metrics:        cfg.MetricsEnabled,
		OIDC:           oidcCfg,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go purgeSessions(ctx, authSvc, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{"addr": cfg.Addr, "store": cfg.Store}).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server")
	}
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		db := memory.New()
		return &stores{records: db, users: db, sessions: db.NewSessionRepo(), close: func() error { return nil }}, nil
	}
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &stores{records: db, users: db, sessions: postgres.NewSessionRepo(db), close: db.Close}, nil
}

func purgeSessions(ctx context.Context, auth *app.AuthService, logger logrus.FieldLogger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PurgeExpiredSessions(ctx); err != nil {
				logger.WithError(err).Warn("purge expired sessions")
			}
		}
	}
}
