package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MinecAnton209/durak-online-sub001/internal/auth"
	"github.com/MinecAnton209/durak-online-sub001/internal/cache"
	"github.com/MinecAnton209/durak-online-sub001/internal/config"
	"github.com/MinecAnton209/durak-online-sub001/internal/database"
	"github.com/MinecAnton209/durak-online-sub001/internal/game"
	"github.com/MinecAnton209/durak-online-sub001/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	regCfg := game.RegistryConfig{
		Log:           log,
		GraceWindow:   cfg.GraceWindow,
		AbsenceWindow: cfg.AbsenceWindow,
		SweepInterval: cfg.SweepInterval,
	}

	var userSource ws.UserSource
	if cfg.DatabaseURL != "" {
		store, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database connection failed")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		regCfg.Store = store
		userSource = store
		log.Info("database connected")
	} else {
		log.Warn("DATABASE_URL not set, balances are in-memory only")
	}

	var historian *cache.Historian
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		defer client.Close()
		historian = cache.NewHistorian(client)
		regCfg.Historian = historian
		log.Info("redis connected")
	} else {
		log.Warn("REDIS_ADDR not set, action history disabled")
	}

	registry := game.NewRegistry(regCfg)
	defer registry.Close()

	hub := ws.NewHub(log)
	registry.SetSender(hub.Send)

	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	handler := ws.NewHandler(log, authSvc, registry, hub, userSource, cfg.AllowedOrigins)
	if historian != nil {
		handler.SetHistory(historian)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	handler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
	}
}
