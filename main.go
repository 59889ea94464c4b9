package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"gridwatch/internal/config"
	"gridwatch/internal/controllers"
	"gridwatch/internal/logger"
	"gridwatch/internal/middleware"
	"gridwatch/internal/routes"
	"gridwatch/internal/services"
	"gridwatch/internal/simulator"
	"gridwatch/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configDir := pflag.String("config", ".", "directory containing config.yaml")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		logger.Init(true)
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Log.Debug || *debug)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("failed to open store")
	}
	defer st.Close()

	engine := simulator.NewEngine(st, st, simulator.Options{
		Interval: cfg.Simulator.TickInterval,
	})

	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	systemService := services.NewSystemService()

	authMW := middleware.NewAuthMiddleware(authService)

	if !cfg.Log.Debug && !*debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestMetricsMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter()))

	routes.RegisterAuthRoutes(r, controllers.NewAuthController(st, authService), authMW)
	routes.RegisterDeviceRoutes(r, controllers.NewDeviceController(st, engine), authMW)
	routes.RegisterAlertRoutes(r, controllers.NewAlertController(st, engine), authMW)
	routes.RegisterAdminRoutes(r, controllers.NewAdminController(st), authMW)
	routes.RegisterMonitorRoutes(r,
		controllers.NewWebSocketController(engine),
		controllers.NewSystemController(systemService, engine),
		authMW)

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("gridwatch listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
}
