// server runs the auth HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	auditpkg "neo-auth/backend/internal/audit"
	auditrepo "neo-auth/backend/internal/audit/repository"
	"neo-auth/backend/internal/auth/service"
	"neo-auth/backend/internal/blacklist"
	"neo-auth/backend/internal/config"
	"neo-auth/backend/internal/db"
	"neo-auth/backend/internal/notify"
	"neo-auth/backend/internal/security"
	"neo-auth/backend/internal/server"
	"neo-auth/backend/internal/server/middleware"
	sessionrepo "neo-auth/backend/internal/session/repository"
	otelx "neo-auth/backend/internal/telemetry/otel"
	tokenrepo "neo-auth/backend/internal/token/repository"
	userrepo "neo-auth/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := otelx.NewProviders(ctx, cfg.OTLPEndpoint, "neo-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	metrics, err := otelx.NewAuthMetrics(providers.MeterProvider.Meter("neo-auth"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("public key: %v", err)
	}
	codec := security.NewCodec(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTServiceIssuer, cfg.JWTAudience, security.TTLConfig{
		Access:       cfg.AccessTTL(),
		Refresh:      cfg.RefreshTTL(),
		AdminAccess:  cfg.AdminAccessTTL(),
		AdminRefresh: cfg.AdminRefreshTTL(),
		Service:      cfg.ServiceTTL(),
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	// Blacklist entries outlive the longest access token they may cover.
	blacklistStore := blacklist.NewRedisStore(redisClient, "blk", cfg.AccessTTL())

	var notifier notify.Notifier
	if kafka := notify.NewKafkaNotifier(cfg.KafkaBrokersList(), cfg.NotifyKafkaTopic); kafka != nil {
		defer kafka.Close()
		notifier = kafka
	} else if cfg.Env != "production" {
		notifier = notify.LogNotifier{}
	}

	tokens := tokenrepo.NewLoggingStore(tokenrepo.NewPostgresStore(database))
	sessions := sessionrepo.NewPostgresRepository(database)
	users := userrepo.NewPostgresRepository(database)
	auditTrail := auditpkg.NewRecorder(auditrepo.NewPostgresRepository(database), sessions)
	hasher := security.NewHasher(cfg.BcryptCost)

	authService := service.NewAuthService(
		users, tokens, sessions, auditTrail, blacklistStore,
		hasher, codec, notifier, metrics,
		cfg.MaxLoginFailures, cfg.LockoutDuration(),
	)
	serviceTokens := service.NewServiceTokenCache(codec, tokenrepo.NewPostgresServiceTokenStore(database))

	handler := server.NewHandler(authService, serviceTokens)
	router := server.NewRouter(handler, middleware.NewAuth(codec, blacklistStore))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
