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

	"stayhaven/internal/bot"
	"stayhaven/internal/cancellation"
	"stayhaven/internal/config"
	"stayhaven/internal/db"
	"stayhaven/internal/events"
	"stayhaven/internal/hotelapi"
	"stayhaven/internal/metrics"
	"stayhaven/internal/navigation"
	"stayhaven/internal/session"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STAYHAVEN_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Telegram.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}
	if cfg.API.BaseURL == "" {
		logger.Fatal().Msg("set api.base_url in config")
	}

	database, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	client := hotelapi.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.RequestTimeout())
	if cfg.API.RatePerSecond > 0 {
		client.UseRateLimit(cfg.API.RatePerSecond, cfg.API.Burst)
	}

	sqliteSessions := db.NewSessionStore(database)
	var sessions session.Store = sqliteSessions
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if ttl := cfg.CacheTTL(); ttl > 0 {
			client.UseRedisCache(rdb, ttl)
		}
		sessions = session.NewFailoverStore(session.NewRedisStore(rdb), sqliteSessions, &logger)
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	bus := events.NewEventBus()
	for _, t := range []string{events.BookingCreated, events.BookingCancelled, events.ProfileUpdated, events.SessionLogin, events.SessionLogout} {
		bus.Subscribe(t, func(e events.Event) error {
			logger.Info().Str("event", e.Type).Str("event_id", e.ID).Int64("chat_id", e.ChatID).Msg("event")
			return nil
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := navigation.NewBar(toLinks(config.DefaultNavigation()))
	if err := config.WatchNavigation(ctx, cfg.NavigationPath, 30*time.Second, func(updated *config.NavigationConfig) {
		bar.SetLinks(toLinks(updated))
		logger.Info().Int("links", len(updated.Links)).Msg("navigation config loaded")
	}); err != nil {
		logger.Warn().Err(err).Str("path", cfg.NavigationPath).Msg("navigation config unavailable, using defaults")
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.Deps{
		Backend:    bot.NewHTTPBackend(client),
		Sessions:   session.NewManager(sessions, client, cfg.SessionTTL()),
		Navigation: bar,
		History:    database,
		Events:     bus,
		Tracker:    cancellation.NewTracker(),
		Timeout:    cfg.RequestTimeout(),
		Workers:    cfg.Telegram.Workers,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHealth(gctx, cfg.Monitoring.HealthCheckPort, database, rdb, client)
	})
	if cfg.Monitoring.PrometheusEnabled {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Monitoring.PrometheusPort)
		})
	}
	if cfg.Backup.Enabled {
		backups := db.NewBackupService(database, cfg.Backup, &logger)
		g.Go(func() error {
			backups.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		purgeSessions(gctx, sqliteSessions, time.Hour, &logger)
		return nil
	})
	g.Go(func() error {
		logger.Info().Msg("StayHaven bot started")
		b.Start(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("shutdown with error")
		os.Exit(1)
	}
	logger.Info().Msg("StayHaven bot stopped")
}

func toLinks(cfg *config.NavigationConfig) []navigation.Link {
	links := make([]navigation.Link, 0, len(cfg.Links))
	for _, l := range cfg.Links {
		links = append(links, navigation.Link{Label: l.Label, Path: l.Path, MatchPrefix: l.Prefix})
	}
	return links
}

func purgeSessions(ctx context.Context, store *db.SessionStore, interval time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpired(ctx, now)
			if err != nil {
				logger.Error().Err(err).Msg("purge expired sessions failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("deleted", n).Msg("purged expired sessions")
			}
		}
	}
}

func serveHealth(ctx context.Context, port int, database *db.DB, rdb *redis.Client, client *hotelapi.Client) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctxPing, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if err := client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "hotel service not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return serve(ctx, port, mux)
}

func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return serve(ctx, port, mux)
}

func serve(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on :%d: %w", port, err)
	}
	return nil
}
