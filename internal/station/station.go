// Package station runs an unattended check-in point: scans come in from a
// keyboard-wedge scanner on stdin or from the local HTTP intake, are queued,
// and are verified one at a time.
package station

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"booking/internal/api"
	"booking/internal/checkin"
	"booking/internal/httpmiddleware"
	"booking/internal/logger"
	"booking/internal/metrics"
	"booking/internal/queue"
)

// Processor verifies one payload.
type Processor interface {
	CheckIn(ctx context.Context, payload string) (checkin.Result, error)
}

// HealthFunc reports named dependency checks.
type HealthFunc func(ctx context.Context) map[string]bool

// Config wires a station.
type Config struct {
	ID              string
	Queue           queue.Queue
	Processor       Processor
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Health          HealthFunc
	RateLimitPerMin int

	// AllowedOrigins are browser origins allowed to post scans. Empty means
	// same-origin and non-browser clients only.
	AllowedOrigins []string
}

// Station owns the intake and the worker loop.
type Station struct {
	cfg Config
	log zerolog.Logger
}

// New creates a station. Queue, Processor and Metrics are required.
func New(cfg Config) *Station {
	if cfg.ID == "" {
		cfg.ID = "station"
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	l := logger.Component("station")
	return &Station{cfg: cfg, log: l.With().Str("station_id", cfg.ID).Logger()}
}

// Submit queues a scan. Blank payloads are refused.
func (s *Station) Submit(ctx context.Context, payload, source string) (queue.Message, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return queue.Message{}, checkin.ErrEmptyPayload
	}
	msg := queue.NewScan(payload, source)
	if err := s.cfg.Queue.Publish(ctx, msg); err != nil {
		return queue.Message{}, fmt.Errorf("queue scan: %w", err)
	}
	s.cfg.Metrics.Queued.Inc()
	s.log.Debug().Str("scan_id", msg.ID).Str("source", source).Msg("scan queued")
	return msg, nil
}

// ReadScans queues every non-blank line of r until EOF or ctx is done.
func (s *Station) ReadScans(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if _, err := s.Submit(ctx, line, "stdin"); err != nil {
			s.log.Error().Err(err).Msg("failed to queue scan")
		}
	}
	return sc.Err()
}

// Run verifies queued scans sequentially until ctx is done.
func (s *Station) Run(ctx context.Context) error {
	messages, err := s.cfg.Queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	s.log.Info().Msg("station worker started")
	for msg := range messages {
		if msg.Kind != queue.KindScan {
			continue
		}
		s.Process(ctx, msg)
	}
	s.log.Info().Msg("station worker stopped")
	return nil
}

// Process verifies one scan and returns the recorded outcome.
func (s *Station) Process(ctx context.Context, msg queue.Message) string {
	res, err := s.cfg.Processor.CheckIn(ctx, msg.Payload)
	outcome := classify(res, err)
	s.cfg.Metrics.ObserveScan(outcome)

	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Str("scan_id", msg.ID).
		Str("source", msg.Source).
		Str("outcome", outcome).
		Str("student", res.StudentName).
		Str("course", res.CourseTitle).
		Msg("scan processed")
	return outcome
}

func classify(res checkin.Result, err error) string {
	switch {
	case err == nil && res.Outcome == checkin.Already:
		return metrics.OutcomeAlready
	case err == nil:
		return metrics.OutcomeFresh
	case errors.Is(err, checkin.ErrEmptyPayload):
		return metrics.OutcomeInvalid
	}
	switch api.StatusOf(err) {
	case http.StatusBadRequest, http.StatusNotFound:
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

// Router is the local intake: POST /scans, GET /healthz and GET /metrics.
func (s *Station) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(s.log, "/healthz", "/metrics"))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", s.health)

	limited := r.Group("", httpmiddleware.NewTokenBucket(s.cfg.RateLimitPerMin, s.cfg.RateLimitPerMin).GinMiddleware())
	limited.POST("/scans", s.intake)
	return r
}

// Handler is Router wrapped with CORS for the configured origins.
func (s *Station) Handler() http.Handler {
	router := s.Router()
	if len(s.cfg.AllowedOrigins) == 0 {
		return router
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", httpmiddleware.RequestIDHeader},
		ExposedHeaders: []string{httpmiddleware.RequestIDHeader},
	}).Handler(router)
}

func (s *Station) intake(c *gin.Context) {
	var req struct {
		QRCodeData string `json:"qr_code_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	msg, err := s.Submit(c.Request.Context(), req.QRCodeData, "http:"+c.ClientIP())
	if errors.Is(err, checkin.ErrEmptyPayload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter QR code data"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("intake publish failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"scan_id": msg.ID, "received_at": msg.ReceivedAt})
}

func (s *Station) health(c *gin.Context) {
	checks := map[string]bool{}
	if s.cfg.Health != nil {
		checks = s.cfg.Health(c.Request.Context())
	}
	status := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	body := gin.H{"status": "ok", "station_id": s.cfg.ID}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	for name, ok := range checks {
		body[name] = ok
	}
	c.JSON(status, body)
}
