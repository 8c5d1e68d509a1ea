package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bindery/internal/app"
	"bindery/internal/config"
	"bindery/internal/server"
	"bindery/internal/util"
	"bindery/pkg/auth"
	"bindery/pkg/events"
	"bindery/pkg/storage"
	"bindery/pkg/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	jwtTTL, err := config.ParseDuration(cfg.JWTTTL, 0)
	if err != nil {
		log.Fatalf("failed to parse jwt ttl: %v", err)
	}
	jwtLeeway, err := config.ParseDuration(cfg.JWTLeeway, 0)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, auth.TokenOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      jwtTTL,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init token issuer: %v", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	var objects storage.ObjectStore
	if cfg.StorageDir != "" {
		objects, err = storage.NewFileStore(cfg.StorageDir)
	} else {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("failed to init amqp publisher: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	appCore, err := app.New(app.Config{
		Store:          dataStore,
		Objects:        objects,
		Events:         publisher,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxCoverBytes:  cfg.MaxCoverBytes,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Tokens:                   tokens,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		MaxUploadBytes:           cfg.MaxUploadBytes,
		TrustedProxies:           trustedProxies,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("bindery server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
