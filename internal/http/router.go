// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/pillwise/go-reminder-backend/internal/config"
	"github.com/pillwise/go-reminder-backend/internal/domain"
	"github.com/pillwise/go-reminder-backend/internal/druginfo"
	"github.com/pillwise/go-reminder-backend/internal/extraction"
	"github.com/pillwise/go-reminder-backend/internal/http/handlers"
	"github.com/pillwise/go-reminder-backend/internal/http/middleware"
	"github.com/pillwise/go-reminder-backend/internal/repo"
	"github.com/pillwise/go-reminder-backend/internal/scheduler"
	"github.com/pillwise/go-reminder-backend/internal/services"
	"github.com/pillwise/go-reminder-backend/internal/telegram"
)

// kvRepoShim adapts the repository free functions to the services.KVRepo
// interface expected by the Store. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type kvRepoShim struct{}

// GetKV proxies repo.GetKV.
func (kvRepoShim) GetKV(ctx context.Context, db *gorm.DB, key string, now time.Time) (string, error) {
	return repo.GetKV(ctx, db, key, now)
}

// SetKV proxies repo.SetKV.
func (kvRepoShim) SetKV(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration) error {
	return repo.SetKV(ctx, db, key, value, ttl)
}

// SetKVNX proxies repo.SetKVNX.
func (kvRepoShim) SetKVNX(ctx context.Context, db *gorm.DB, key, value string, ttl time.Duration) error {
	return repo.SetKVNX(ctx, db, key, value, ttl)
}

// DeleteKV proxies repo.DeleteKV.
func (kvRepoShim) DeleteKV(ctx context.Context, db *gorm.DB, key string) error {
	return repo.DeleteKV(ctx, db, key)
}

// deliveryRepoShim adapts the delivery-log free functions to the
// services.DeliveryRepo interface consumed by the NotifyService.
type deliveryRepoShim struct{}

// CreateDelivery proxies repo.CreateDelivery.
func (deliveryRepoShim) CreateDelivery(ctx context.Context, db *gorm.DB, patientID, recipient, drugName, scheduleTime, date, status string) (*domain.Delivery, error) {
	return repo.CreateDelivery(ctx, db, patientID, recipient, drugName, scheduleTime, date, status)
}

// CountDeliveries proxies repo.CountDeliveries (pagination support).
func (deliveryRepoShim) CountDeliveries(ctx context.Context, db *gorm.DB, patientID string) (int64, error) {
	return repo.CountDeliveries(ctx, db, patientID)
}

// ListDeliveriesPage proxies repo.ListDeliveriesPage (pagination support).
func (deliveryRepoShim) ListDeliveriesPage(ctx context.Context, db *gorm.DB, patientID string, offset, limit int) ([]domain.Delivery, error) {
	return repo.ListDeliveriesPage(ctx, db, patientID, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, the unversioned trigger
// webhook, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and Security headers
//  8. Rate limiter (per patient/IP, API group only; the webhook is
//     authenticated by signature instead)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			handlers.HeaderSignature, // webhook JWT, never logged in clear
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit: the largest legal body is a prescription
	// image upload plus multipart framing.
	r.Use(limitBody(cfg.MaxUploadBytes + 1<<20))

	// Compress JSON responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.HeaderSignature},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.HeaderSignature},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/upstreams
	store := services.NewStore(db, kvRepoShim{}, cfg.TTL)
	sender := telegram.New(cfg.Telegram)

	var extractor extraction.Extractor = extraction.Mock{}
	if cfg.Extraction.APIKey != "" {
		extractor = extraction.NewClient(cfg.Extraction)
	}

	notifyURL := cfg.Scheduler.NotifyBaseURL + "/webhooks/notify"
	scheduleSvc := services.NewScheduleService(store, scheduler.NewClient(cfg.Scheduler), notifyURL)
	guardianSvc := services.NewGuardianService(store)
	verifySvc := services.NewVerificationService(store, sender)
	notifySvc := services.NewNotifyService(store, sender, deliveryRepoShim{}, cfg.Telegram.DefaultChatID)

	h := handlers.New(handlers.Deps{
		Schedules:            scheduleSvc,
		Guardians:            guardianSvc,
		Verification:         verifySvc,
		Notify:               notifySvc,
		Extractor:            extractor,
		DrugInfo:             druginfo.New(cfg.DrugInfo),
		Sender:               sender,
		Verifier:             scheduler.NewReceiver(cfg.Scheduler),
		SkipSignature:        cfg.Scheduler.SkipSignature,
		DefaultPatientChatID: cfg.Telegram.DefaultChatID,
		MaxUploadBytes:       cfg.MaxUploadBytes,
	})

	// Trigger webhook: signature-authenticated, outside the rate-limited API
	// group so bursts of due reminders are never throttled.
	r.POST("/webhooks/notify", h.Notify)

	// Token-bucket rate limiter per patient/IP for the public API
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPatientOrIP())

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	api.Use(rl.Handler())
	{
		// Prescription intake
		api.POST("/analyze", h.Analyze)

		// Schedules
		api.GET("/schedules", h.ListSchedules)
		api.DELETE("/schedules", h.CancelSchedules)

		// Guardian linkage
		api.POST("/guardian", h.SaveGuardian)
		api.GET("/guardian", h.GetGuardian)

		// Verification
		api.POST("/verification/start", h.StartVerification)
		api.POST("/verification/confirm", h.ConfirmVerification)

		// Message relay
		api.POST("/telegram", h.RelayMessage)

		// Delivery audit log
		api.GET("/deliveries", h.ListDeliveries)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
