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

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"xandpulse/config"
	"xandpulse/handlers"
	"xandpulse/middleware"
	"xandpulse/services"
	"xandpulse/utils"
)

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting xandpulse",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("seeds", cfg.Server.SeedNodes),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	// 2. Core services
	geo, err := utils.NewGeoResolver(cfg.GeoIP.DBPath, logger)
	if err != nil {
		logger.Warn("GeoIP database unavailable, geo enrichment disabled",
			zap.String("path", cfg.GeoIP.DBPath), zap.Error(err))
	}
	defer geo.Close()

	opts := []services.NodeServiceOption{services.WithGeoResolver(geo)}

	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, services.WithMetrics(services.NewMetrics(registry)))
	}

	prpc := services.NewPRPCClient(cfg, logger)
	source := services.NewPodSource(prpc, cfg.Server.SeedNodes, logger)
	cache := services.NewCacheService(cfg, logger)
	nodes := services.NewNodeService(cfg, source, cache, logger, opts...)

	cache.Start()
	nodes.Start()

	// 3. Config hot reload of scoring tunables
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if _, err := os.Stat(config.Path()); err == nil {
		go func() {
			err := config.Watch(watchCtx, config.Path(), func(next *config.Config) {
				nodes.UpdateScoring(next.Scoring, next.Versions)
			}, logger)
			if err != nil {
				logger.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	// 4. Web server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.LoggerMiddleware(logger))
	e.Use(middleware.RecoverMiddleware(logger))
	e.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	proxy := services.NewRPCProxy(nodes, prpc, cfg.PRPC.DefaultPort, logger)
	h := handlers.NewHandler(cfg, nodes, cache, proxy, logger)
	h.Register(e)

	if cfg.Metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", serverAddr))
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("graceful shutdown initiated")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopWatch()
	nodes.Stop()
	cache.Stop()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server exited cleanly")
}
