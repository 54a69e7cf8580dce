package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	mem "scorekit/adapters/memory"
	redisAdapter "scorekit/adapters/redis"
	sqlxAdapter "scorekit/adapters/sqlx"
	"scorekit/analytics"
	"scorekit/api/httpapi"
	"scorekit/config"
	"scorekit/core"
	"scorekit/engine"
	"scorekit/integrations/webhook"
	"scorekit/leaderboard"
	"scorekit/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Hub      *realtime.Hub
	Service  *engine.Service
	Counters *analytics.Counters
	Handler  http.Handler
	Server   *http.Server
}

var allEventTypes = []core.EventType{
	core.EventScoreSubmitted,
	core.EventRankChange,
	core.EventAchievementUnlocked,
	core.EventCollectibleRevealed,
	core.EventStreakMilestone,
}

func provideConfig(_ context.Context) (*config.Config, error) {
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideStorage(_ context.Context, cfg *config.Config) (engine.Store, error) {
	return setupStorage(cfg)
}

func provideBoard(cfg *config.Config) (leaderboard.Board, error) {
	switch cfg.Leaderboard.Mirror {
	case "none":
		return nil, nil
	case "skiplist":
		return leaderboard.NewSkipList(), nil
	case "redis":
		return redisAdapter.New(cfg.Leaderboard.Redis)
	default:
		return nil, fmt.Errorf("unknown leaderboard mirror: %s", cfg.Leaderboard.Mirror)
	}
}

func provideCounters() *analytics.Counters {
	return analytics.NewCounters()
}

func provideService(ctx context.Context, cfg *config.Config, logger *slog.Logger, store engine.Store, board leaderboard.Board, hub *realtime.Hub, counters *analytics.Counters) (*engine.Service, error) {
	opts := []engine.Option{engine.WithBus(engine.NewEventBus(engine.DispatchAsync))}
	if board != nil {
		opts = append(opts, engine.WithBoard(board))
	}
	svc := engine.New(store, opts...)

	hooks := analytics.NewBridge(counters, analytics.NewDAU())
	var sink *webhook.Sink
	if cfg.Webhook.URL != "" {
		client := &http.Client{Timeout: cfg.Webhook.Timeout}
		sink = webhook.New([]string{cfg.Webhook.URL}, webhook.WithClient(client))
	}

	for _, typ := range allEventTypes {
		svc.Subscribe(typ, func(ctx context.Context, e core.Event) {
			hub.Broadcast(ctx, e)
			hooks.OnEvent(e)
			if sink != nil {
				sink.OnEvent(e)
			}
		})
	}

	if board != nil {
		if err := svc.WarmBoard(ctx, cfg.Leaderboard.WarmLimit); err != nil {
			logger.Warn("leaderboard mirror warm-up failed", "error", err)
		}
	}
	return svc, nil
}

func provideHandler(svc *engine.Service, hub *realtime.Hub, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(cfg *config.Config) (engine.Store, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "sql":
		return sqlxAdapter.New(cfg.Storage.SQL)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
