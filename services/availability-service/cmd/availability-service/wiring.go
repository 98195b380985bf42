package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicslots/libs/auth"
	"github.com/md-rashed-zaman/clinicslots/libs/config"
	"github.com/md-rashed-zaman/clinicslots/libs/db"
	"github.com/md-rashed-zaman/clinicslots/libs/httpx"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/backend"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

// openDirectory picks where clinic data is read from. DIRECTORY_SOURCE=postgres
// reads the backend's database directly; anything else uses its HTTP API.
func openDirectory(ctx context.Context, logger *slog.Logger, client *backend.Client) (catalog.Directory, func(context.Context) error, func(), error) {
	switch strings.ToLower(config.String("DIRECTORY_SOURCE", "http")) {
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, nil, nil, err
		}
		pool, err := db.Open(ctx, dbURL, db.Options{
			MaxConns: int32(config.PositiveInt("DB_MAX_CONNS", 10)),
			ReadOnly: true,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db connection failed: %w", err)
		}
		logger.Info("clinic directory: postgres")
		return storage.NewDirectoryRepository(pool), db.ReadyCheck(pool), pool.Close, nil
	case "http", "":
		logger.Info("clinic directory: backend api")
		return client, client.Ping, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("DIRECTORY_SOURCE must be http or postgres")
	}
}

func openRedis(logger *slog.Logger) *redis.Client {
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return nil
	}
	logger.Info("redis configured", "redis_addr", addr)
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.PositiveInt("REDIS_DB", 0),
	})
}

func newCache(logger *slog.Logger, rdb *redis.Client, m *metrics.Metrics) catalog.Cache {
	ttl := config.Seconds("CACHE_TTL_SECONDS", time.Minute)
	if rdb != nil && config.String("CACHE_BACKEND", "redis") == "redis" {
		logger.Info("catalog cache: redis", "ttl", ttl.String())
		return catalog.NewRedisCache(rdb, ttl, config.String("CACHE_PREFIX", "clinicslots"))
	}
	maxClinics := config.PositiveInt("CACHE_MAX_CLINICS", 128)
	logger.Info("catalog cache: memory", "ttl", ttl.String(), "max_clinics", maxClinics)
	return catalog.NewMemoryCache(maxClinics, ttl, func() { m.ObserveEviction("appointments") })
}

func newRateLimit(logger *slog.Logger, rdb *redis.Client) httpx.Middleware {
	limit := config.PositiveInt("RATE_LIMIT_PER_MINUTE", 120)
	if config.Bool("RATE_LIMIT_DISABLED", false) {
		return nil
	}
	failOpen := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	if rdb != nil {
		logger.Info("rate limiting enabled (redis)", "per_minute", limit)
		return httpx.RateLimit(httpx.NewRedisLimiter(rdb, limit, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl")), logger, failOpen)
	}
	logger.Info("rate limiting enabled (in-memory)", "per_minute", limit)
	return httpx.RateLimit(httpx.NewMemoryLimiter(limit, time.Minute), logger, failOpen)
}

// newOperatorAuth guards the cache management endpoints. They stay unmounted
// when neither OPERATOR_JWT_SECRET nor OPERATOR_JWKS_URL is set.
func newOperatorAuth(logger *slog.Logger) httpx.Middleware {
	var jwks *auth.JWKSClient
	if url := config.String("OPERATOR_JWKS_URL", ""); url != "" {
		jwks = auth.NewJWKSClient(url, config.Seconds("OPERATOR_JWKS_CACHE_SECONDS", 5*time.Minute), &http.Client{Timeout: 5 * time.Second})
	}
	verifier := auth.NewVerifier(auth.VerifierConfig{
		Secret: config.String("OPERATOR_JWT_SECRET", ""),
		JWKS:   jwks,
		Issuer: config.String("OPERATOR_JWT_ISSUER", ""),
	})
	if verifier == nil {
		logger.Warn("operator endpoints disabled (no OPERATOR_JWT_SECRET or OPERATOR_JWKS_URL)")
		return nil
	}
	roles := config.List("OPERATOR_ROLES", "admin,operator")
	logger.Info("operator endpoints enabled", "roles", strings.Join(roles, ","))
	return auth.RequireRole(verifier, logger, roles...)
}
