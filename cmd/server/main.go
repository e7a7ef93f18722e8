package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comanda/backend/internal/audit"
	auditrepo "comanda/backend/internal/audit/repository"
	authhandler "comanda/backend/internal/auth/handler"
	authservice "comanda/backend/internal/auth/service"
	"comanda/backend/internal/config"
	"comanda/backend/internal/db"
	healthhandler "comanda/backend/internal/health/handler"
	"comanda/backend/internal/notify"
	"comanda/backend/internal/obs"
	orderhandler "comanda/backend/internal/order/handler"
	orderrepo "comanda/backend/internal/order/repository"
	"comanda/backend/internal/realtime"
	"comanda/backend/internal/security"
	"comanda/backend/internal/server"
	sessionrepo "comanda/backend/internal/session/repository"
	userrepo "comanda/backend/internal/user/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	dbConn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	tokens := security.NewTokenProvider(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(dbConn)
	sessions := sessionrepo.NewPostgresRepository(dbConn)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(dbConn), server.ClientIPFromContext, logger)
	authSvc := authservice.NewAuthService(users, sessions, hasher, tokens, auditor)

	history := notify.NewHistory()
	hub := realtime.NewHub(logger)
	bus := notify.NewBus(history, hub, logger)
	gateway := realtime.NewGateway(hub, history, tokens, users, logger)

	obs.Init()

	var loginLimit func(http.Handler) http.Handler
	if cfg.LoginRatePerMinute > 0 {
		loginLimit = server.RateLimitPerIP(cfg.LoginRatePerMinute)
	}

	api := http.NewServeMux()
	authhandler.NewHandler(authSvc, cfg.CookieSecure, cfg.RefreshTTL()).Register(api, loginLimit)
	orderhandler.NewHandler(orderrepo.NewPostgresRepository(dbConn), bus).Register(api, server.Authenticate(tokens, users))
	healthhandler.NewHandler(dbConn).Register(api)
	api.Handle("/metrics", obs.Handler())

	chain := server.WithClientIP(server.Logging(logger)(obs.Instrument(api)))

	// The websocket endpoint bypasses the instrumented chain: the upgrade
	// needs the raw ResponseWriter (http.Hijacker).
	root := http.NewServeMux()
	gateway.Register(root)
	root.Handle("/", chain)

	srv := server.New(cfg.HTTPAddr, root, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	case <-quit:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
}
