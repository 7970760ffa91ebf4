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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"booking/internal/api"
	"booking/internal/checkin"
	"booking/internal/config"
	"booking/internal/logger"
	"booking/internal/metrics"
	"booking/internal/queue"
	"booking/internal/session"
	"booking/internal/station"
	"booking/internal/store"
	"booking/internal/ui"
)

// The station signs in with the stored admin session (see `booking login`),
// accepts scans on stdin and POST /scans, and verifies them one by one.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("config")
	}
	log := logger.Configure(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("station failed")
	}
}

func run(cfg config.App, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	var redisClient *store.Redis
	if cfg.QueueBackend == "redis" || cfg.SessionBackend == "redis" {
		redisClient = store.NewRedis(store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
	}

	var sessions session.Store = session.NewFileStore(cfg.SessionDir)
	if cfg.SessionBackend == "redis" {
		sessions = session.NewRedisStore(redisClient, cfg.SessionKey)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	opts := []api.Option{api.WithTransport(m.InstrumentTransport(nil))}
	if cfg.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.Timeout))
	}
	client := api.New(cfg.APIURL, opts...)
	mgr := session.NewManager(sessions, client)
	client.UseTokens(mgr)
	if err := mgr.Restore(ctx); err != nil {
		return err
	}
	u, err := mgr.RequireAdmin()
	if err != nil {
		return errors.New("station needs an admin session, run 'booking login' with an admin account first")
	}
	log.Info().Str("admin", u.Email).Str("api", cfg.APIURL).Msg("session restored")

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	} else {
		q = queue.NewInMemory(64)
	}

	console := checkin.New(client, ui.LogNotifier{Log: logger.Component("checkin")})
	st := station.New(station.Config{
		ID:              cfg.StationID,
		Queue:           q,
		Processor:       console,
		Metrics:         m,
		Gatherer:        prometheus.DefaultGatherer,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.AllowedOrigins,
		Health: func(ctx context.Context) map[string]bool {
			checks := map[string]bool{"session": mgr.IsAuthenticated()}
			if redisClient != nil {
				checks["redis"] = redisClient.Healthy(ctx)
			}
			return checks
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.StationHTTPPort,
		Handler:      st.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting intake")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return st.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down intake")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("intake forced shutdown")
		}
		return nil
	})

	// stdin is not part of the group: a blocked read must not hold up shutdown.
	go func() {
		if err := st.ReadScans(gctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("stdin reader stopped")
		}
	}()

	err = g.Wait()
	log.Info().Msg("station exited")
	return err
}
