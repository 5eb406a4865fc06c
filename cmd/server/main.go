package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"credential-gate/internal/app"
	"credential-gate/internal/config"
	apphttp "credential-gate/internal/http"
	"credential-gate/internal/password"
	"credential-gate/internal/service"
	"credential-gate/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	level, _ := cfg.LogLevel()
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("open stores: %v", err)
	}
	defer stores.Close()

	hasher, err := password.NewBcrypt(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatalf("setup hasher: %v", err)
	}

	sessions, err := session.NewStore(stores.Sessions, session.Options{
		Secret: []byte(cfg.Auth.SessionSecret),
		TTL:    cfg.SessionTTL(),
	})
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}

	gate := service.NewGate(stores.Users, sessions, hasher, service.GateConfig{
		LoginPath:         cfg.Auth.LoginPath,
		LandingPath:       cfg.Auth.LandingPath,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		Logger:            logger.WithField("component", "gate"),
	})
	userService := service.NewUserService(stores.Users, sessions, hasher, cfg.Auth.MinPasswordLength, logger.WithField("component", "users"))

	janitor := session.NewJanitor(sessions, cfg.SweepInterval(), logger.WithField("component", "janitor"))
	janitor.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		gate,
		userService,
		apphttp.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
			TTL:    cfg.SessionTTL(),
		},
		cfg.Auth.LoginPath,
		cfg.Auth.LandingPath,
		logger.WithField("component", "http"),
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s (database driver %s)", cfg.Server.Addr, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	janitor.Shutdown()

	logger.Info("bye")
}
