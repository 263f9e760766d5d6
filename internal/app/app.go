// Package app owns construction, wiring, and shutdown of the service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/anthropic"
	"github.com/GHR600/App-Project-sub003/internal/config"
	"github.com/GHR600/App-Project-sub003/internal/db"
	"github.com/GHR600/App-Project-sub003/internal/http/api"
	"github.com/GHR600/App-Project-sub003/internal/identity"
	"github.com/GHR600/App-Project-sub003/internal/insight"
	"github.com/GHR600/App-Project-sub003/internal/ratelimit"
	"github.com/GHR600/App-Project-sub003/internal/subscription"
	"github.com/GHR600/App-Project-sub003/internal/usage"
	"github.com/GHR600/App-Project-sub003/internal/util"

	relayhttp "github.com/GHR600/App-Project-sub003/internal/http"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Version is the service version, overridable at build time.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// Application owns every long-lived dependency: the store handle, the Redis
// client, the upstream clients, and the HTTP engine.
type Application struct {
	cfg    *config.Config
	db     *gorm.DB
	redis  *redis.Client
	engine *gin.Engine
}

// New constructs a fully wired Application.
func New(cfg *config.Config) (*Application, error) {
	setupLogging(cfg)

	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return nil, errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}

	var redisClient *redis.Client
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		opt, errParse := redis.ParseURL(cfg.RedisURL)
		if errParse != nil {
			return nil, fmt.Errorf("app: parse redis url: %w", errParse)
		}
		redisClient = redis.NewClient(opt)
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	}

	identityClient := identity.NewClient(cfg)
	anthropicClient := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.RequestTimeout, cfg.Retry)
	log.WithFields(log.Fields{
		"identity_url":      cfg.IdentityURL,
		"identity_anon_key": util.MaskSecret(cfg.IdentityAnonKey),
		"anthropic_api_key": util.MaskSecret(cfg.AnthropicAPIKey),
	}).Info("upstream clients configured")
	gate := subscription.NewService(conn, cfg.FreeTierLimit, cfg.QuotaPolicy)
	insights := insight.NewService(anthropicClient, cfg.FreeModel, cfg.PremiumModel, cfg.HistoryTurns)
	recorder := usage.NewRecorder(conn)

	engine := buildEngine(cfg)
	api.RegisterRoutes(engine, api.Deps{
		Cfg:       cfg,
		DB:        conn,
		Identity:  identityClient,
		Gate:      gate,
		Insights:  insights,
		Recorder:  recorder,
		Anthropic: anthropicClient,
		Limiter:   limiter,
		Version:   Version,
	})

	return &Application{
		cfg:    cfg,
		db:     conn,
		redis:  redisClient,
		engine: engine,
	}, nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully and
// closes owned resources.
func (a *Application) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.WithFields(log.Fields{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
		"quotaPolicy": a.cfg.QuotaPolicy,
	}).Info("server listening")

	select {
	case errServe := <-serveErr:
		a.close()
		return errServe
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errShutdown := server.Shutdown(shutdownCtx)
	a.close()
	if errShutdown != nil && !errors.Is(errShutdown, context.DeadlineExceeded) {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	log.Info("server stopped")
	return nil
}

// close releases the Redis and database handles.
func (a *Application) close() {
	if a.redis != nil {
		if errClose := a.redis.Close(); errClose != nil {
			log.WithError(errClose).Warn("close redis failed")
		}
	}
	if sqlDB, errDB := a.db.DB(); errDB == nil {
		if errClose := sqlDB.Close(); errClose != nil {
			log.WithError(errClose).Warn("close database failed")
		}
	}
}

// buildEngine assembles the gin engine with the shared middleware stack.
func buildEngine(cfg *config.Config) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(relayhttp.RequestIDMiddleware())
	engine.Use(relayhttp.BodyLimitMiddleware(cfg.MaxBodyBytes))
	engine.Use(cors.New(corsConfig(cfg)))
	return engine
}

// corsConfig builds the CORS policy from the configured origins.
func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	return corsCfg
}
